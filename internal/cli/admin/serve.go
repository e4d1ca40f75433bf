package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/server"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the ragchat API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides RAGCHAT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newApp(ctx, appOptions{migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	chatSvc := service.NewChatService(a.retrieval, a.llm, a.history, service.ChatConfig{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, a.logger)
	historySvc := service.NewHistoryService(a.history)
	diagnosticsSvc := service.NewDiagnosticsService(a.knowledge, a.retrieval, cfg.EmbeddingDimensions, a.logger)

	router := server.NewRouter(server.RouterConfig{
		Logger:         a.logger,
		AdminToken:     cfg.AdminToken,
		Debug:          cfg.Debug,
		ChatHandler:    handlers.NewChatHandler(chatSvc, cfg.Debug, a.logger),
		HistoryHandler: handlers.NewHistoryHandler(historySvc),
		IngestHandler:  handlers.NewIngestHandler(a.ingest, a.seed),
		HealthHandler:  handlers.NewHealthHandler(diagnosticsSvc),
	})

	if cfg.AdminToken == "" {
		a.logger.Warn("RAGCHAT_ADMIN_TOKEN not set, ingestion endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("server exited")
	return nil
}
