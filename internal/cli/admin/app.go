package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/cloo-solutions/ragchat/internal/logging"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/cloo-solutions/ragchat/internal/repository"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var errMissingOpenAIKey = errors.New("RAGCHAT_OPENAI_API_KEY is required")

// app holds the process-wide dependencies shared by the daemon commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
	llm    *openai.Client

	knowledge *repository.KnowledgeRepository
	history   *repository.ChatHistoryRepository

	ingest    *service.IngestService
	retrieval *service.RetrievalService

	closers []func()
}

type appOptions struct {
	migrate bool
}

// newApp loads configuration and connects the store and model provider.
// Callers must call close when done.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
			Logger:           logger,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			a.closers = append(a.closers, shutdownTelemetry)
		}
	}

	if !cfg.HasOpenAI() {
		a.close()
		return nil, errMissingOpenAIKey
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolConfig{})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)
	logger.Info("connected to database")

	if opts.migrate {
		if _, err := database.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a.llm = openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
		MaxRetries:          cfg.EmbeddingMaxRetries,
		Logger:              logger,
	})

	a.knowledge = repository.NewKnowledgeRepository(pool)
	a.history = repository.NewChatHistoryRepository(pool)

	a.ingest = service.NewIngestService(a.knowledge, a.llm, service.IngestConfig{
		ChunkSize:           cfg.ChunkSize,
		ChunkOverlap:        cfg.ChunkOverlap,
		MinContentLength:    cfg.MinContentLength,
		Concurrency:         cfg.IngestConcurrency,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	}, logger)

	a.retrieval = service.NewRetrievalService(a.knowledge, a.llm, service.RetrievalConfig{
		Threshold: cfg.MatchThreshold,
		Count:     cfg.MatchCount,
	}, logger)

	return a, nil
}

func (a *app) seed(ctx context.Context) *service.SeedReport {
	return service.Seed(ctx, a.ingest, service.SeedDocuments)
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
