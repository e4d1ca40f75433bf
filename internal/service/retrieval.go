package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/logging"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"go.uber.org/zap"
)

const (
	// QueryHistoryWindow is how many trailing messages feed the search query
	QueryHistoryWindow = 6
	querySeparator     = " - "
)

// SimilaritySearcher runs vector similarity queries against the knowledge store
type SimilaritySearcher interface {
	SimilaritySearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.RetrievedMatch, error)
}

// RetrievalConfig is the threshold/count policy for similarity search
type RetrievalConfig struct {
	Threshold float64
	Count     int
}

// RetrievalService turns a conversation into ranked knowledge matches
type RetrievalService struct {
	searcher SimilaritySearcher
	embedder EmbeddingClient
	cfg      RetrievalConfig
	logger   *zap.Logger
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(searcher SimilaritySearcher, embedder EmbeddingClient, cfg RetrievalConfig, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		searcher: searcher,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.Named("retrieval"),
	}
}

// BuildSearchQuery joins the trimmed, non-empty contents of the last
// QueryHistoryWindow messages. If none has text the raw last content is used.
func BuildSearchQuery(messages []domain.Message) string {
	start := max(0, len(messages)-QueryHistoryWindow)

	parts := make([]string, 0, len(messages)-start)
	for _, m := range messages[start:] {
		if c := strings.TrimSpace(m.Content); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, querySeparator)
	}
	return domain.LastContent(messages)
}

// Retrieve builds a query from the conversation and searches the knowledge base.
// Embedding and store failures come back as domain.ErrRetrievalFailed; an empty
// match list is a valid result.
func (s *RetrievalService) Retrieve(ctx context.Context, messages []domain.Message) (*domain.Retrieval, error) {
	return s.Search(ctx, BuildSearchQuery(messages))
}

// Search embeds query and returns the matches above the configured threshold.
func (s *RetrievalService) Search(ctx context.Context, query string) (*domain.Retrieval, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	logQuery := zap.String("query", logging.Truncate(query, 100))

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		s.logger.Error("query embedding failed", logQuery, zap.Error(err))
		return nil, domain.ErrRetrievalFailed.Wrap(domain.ErrEmbeddingFailed.Wrap(err))
	}

	matches, err := s.searcher.SimilaritySearch(ctx, embedding, s.cfg.Threshold, s.cfg.Count)
	if err != nil {
		span.SetError(err)
		s.logger.Error("similarity search failed", logQuery, zap.Error(err))
		return nil, domain.ErrRetrievalFailed.Wrap(err)
	}
	if matches == nil {
		matches = []domain.RetrievedMatch{}
	}

	span.SetData("matches", len(matches))
	s.logger.Debug("retrieval complete",
		logQuery,
		zap.Int("matches", len(matches)),
		zap.Float64("threshold", s.cfg.Threshold),
	)

	return &domain.Retrieval{Query: query, Matches: matches}, nil
}
