package server

import (
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes int64 = 5 * 1024 * 1024

type RouterConfig struct {
	Logger     *zap.Logger
	AdminToken string
	// Debug exposes /debug routes.
	Debug        bool
	MaxBodyBytes int64

	ChatHandler    *handlers.ChatHandler
	HistoryHandler *handlers.HistoryHandler
	IngestHandler  *handlers.IngestHandler
	HealthHandler  *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)
	r.Get("/health/db", cfg.HealthHandler.Database)

	r.Post("/chat", cfg.ChatHandler.Chat)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", cfg.HistoryHandler.ListSessions)
		r.Get("/{id}/messages", cfg.HistoryHandler.ListMessages)
		r.Delete("/{id}", cfg.HistoryHandler.DeleteSession)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminToken(cfg.AdminToken))

		r.Post("/ingest", cfg.IngestHandler.Ingest)
		r.Post("/ingest/batch", cfg.IngestHandler.IngestBatch)
		r.Post("/seed", cfg.IngestHandler.Seed)
	})

	if cfg.Debug {
		r.Get("/debug/prompt", cfg.HealthHandler.DebugPrompt)
	}

	return r
}
