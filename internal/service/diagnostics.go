package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"go.uber.org/zap"
)

const promptPreviewLength = 500

// KnowledgeInspector exposes read-only facts about the knowledge store
type KnowledgeInspector interface {
	Count(ctx context.Context) (int, error)
	HasMatchFunction(ctx context.Context) (bool, error)
	SampleEmbeddingDimensions(ctx context.Context) (int, error)
}

// QuerySearcher runs a retrieval for a free-text query
type QuerySearcher interface {
	Search(ctx context.Context, query string) (*domain.Retrieval, error)
}

// StoreHealth describes whether the knowledge store can serve retrieval
type StoreHealth struct {
	Healthy             bool   `json:"healthy"`
	Documents           int    `json:"documents"`
	EmbeddingDimensions int    `json:"embeddingDimensions"`
	ExpectedDimensions  int    `json:"expectedDimensions"`
	MatchFunction       bool   `json:"matchFunction"`
	Diagnosis           string `json:"diagnosis"`
}

// PromptSource is a match summarised for prompt diagnostics
type PromptSource struct {
	Title      string `json:"title"`
	Similarity string `json:"similarity"`
}

// PromptDebug shows what the generation provider would receive for a query
type PromptDebug struct {
	Query         string         `json:"query"`
	SourcesFound  int            `json:"sourcesFound"`
	Sources       []PromptSource `json:"sources"`
	PromptPreview string         `json:"systemPromptPreview"`
	PromptLength  int            `json:"systemPromptLength"`
	Diagnosis     string         `json:"diagnosis"`
}

// DiagnosticsService answers operator questions about the RAG pipeline
type DiagnosticsService struct {
	store      KnowledgeInspector
	searcher   QuerySearcher
	dimensions int
	logger     *zap.Logger
}

// NewDiagnosticsService creates a new DiagnosticsService instance
func NewDiagnosticsService(store KnowledgeInspector, searcher QuerySearcher, dimensions int, logger *zap.Logger) *DiagnosticsService {
	return &DiagnosticsService{
		store:      store,
		searcher:   searcher,
		dimensions: dimensions,
		logger:     logger.Named("diagnostics"),
	}
}

// StoreHealth checks the row count, the width of stored embeddings and the
// presence of the similarity function. Only an unreachable store is an error.
func (s *DiagnosticsService) StoreHealth(ctx context.Context) (*StoreHealth, error) {
	ctx, span := telemetry.StartSpan(ctx, "DiagnosticsService.StoreHealth", telemetry.SpanAttributes{
		Operation: "store_health",
	})
	defer span.End()

	count, err := s.store.Count(ctx)
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrRetrievalFailed.Wrap(err)
	}

	dims, err := s.store.SampleEmbeddingDimensions(ctx)
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrRetrievalFailed.Wrap(err)
	}

	hasMatch, err := s.store.HasMatchFunction(ctx)
	if err != nil {
		span.SetError(err)
		return nil, domain.ErrRetrievalFailed.Wrap(err)
	}

	h := &StoreHealth{
		Documents:           count,
		EmbeddingDimensions: dims,
		ExpectedDimensions:  s.dimensions,
		MatchFunction:       hasMatch,
	}

	switch {
	case !hasMatch:
		h.Diagnosis = "similarity function match_knowledge is missing, run migrations"
	case count == 0:
		h.Diagnosis = "knowledge base is empty, run seed or ingest documents"
	case dims != s.dimensions:
		h.Diagnosis = fmt.Sprintf("stored embeddings have %d dimensions, expected %d", dims, s.dimensions)
	default:
		h.Healthy = true
		h.Diagnosis = "ok"
	}

	if !h.Healthy {
		s.logger.Warn("knowledge store degraded", zap.String("diagnosis", h.Diagnosis))
	}
	return h, nil
}

// DebugPrompt runs retrieval for query and renders the system prompt
// without calling the generation provider.
func (s *DiagnosticsService) DebugPrompt(ctx context.Context, query string) (*PromptDebug, error) {
	ctx, span := telemetry.StartSpan(ctx, "DiagnosticsService.DebugPrompt", telemetry.SpanAttributes{
		Operation: "debug_prompt",
	})
	defer span.End()

	retrieval, err := s.searcher.Search(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	prompt := BuildPrompt(query, retrieval.Matches)

	sources := make([]PromptSource, len(retrieval.Matches))
	for i, m := range retrieval.Matches {
		sources[i] = PromptSource{
			Title:      m.Title,
			Similarity: fmt.Sprintf("%.1f%%", m.Similarity*100),
		}
	}

	preview := prompt
	if r := []rune(prompt); len(r) > promptPreviewLength {
		preview = string(r[:promptPreviewLength]) + "..."
	}

	d := &PromptDebug{
		Query:         query,
		SourcesFound:  len(sources),
		Sources:       sources,
		PromptPreview: preview,
		PromptLength:  len([]rune(prompt)),
		Diagnosis:     "sources found, the answer will be grounded in them",
	}
	if len(sources) == 0 {
		d.Diagnosis = "no sources found, the answer will be the refusal message"
	}
	return d, nil
}
