package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// KnowledgeWriter persists embedded chunks
type KnowledgeWriter interface {
	InsertChunk(ctx context.Context, c *domain.KnowledgeChunk) error
}

// IngestConfig holds the chunking and validation policy for ingestion
type IngestConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	MinContentLength int
	Concurrency      int

	// EmbeddingDimensions is the width every stored embedding must have.
	// Zero disables the check.
	EmbeddingDimensions int
}

// DefaultIngestConfig matches the documented environment defaults.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		ChunkSize:           512,
		ChunkOverlap:        50,
		MinContentLength:    50,
		Concurrency:         4,
		EmbeddingDimensions: openai.DefaultEmbeddingDimensions,
	}
}

// IngestService chunks documents, embeds every chunk and stores it
type IngestService struct {
	store    KnowledgeWriter
	embedder EmbeddingClient
	cfg      IngestConfig
	logger   *zap.Logger
}

// NewIngestService creates a new IngestService instance
func NewIngestService(store KnowledgeWriter, embedder EmbeddingClient, cfg IngestConfig, logger *zap.Logger) *IngestService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &IngestService{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.Named("ingest"),
	}
}

// Ingest validates and stores one document. The returned error is nil
// exactly when the result reports success; every chunk is attempted even if
// a sibling fails, so a failed result may still report stored chunks.
func (s *IngestService) Ingest(ctx context.Context, doc domain.Document) (domain.IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		Document:  doc.Title,
		Operation: "ingest",
	})
	defer span.End()

	title := strings.TrimSpace(doc.Title)

	chunks, err := s.prepare(doc)
	if err != nil {
		s.logger.Info("document rejected", zap.String("title", title), zap.Error(err))
		return failedResult(title, 0, err), err
	}

	stored, err := s.storeChunks(ctx, title, chunks, doc.Metadata)
	if err != nil {
		span.SetError(err)
		s.logger.Error("document ingestion failed",
			zap.String("title", title),
			zap.Int("chunks_stored", stored),
			zap.Int("chunks_total", len(chunks)),
			zap.Error(err),
		)
		return failedResult(title, stored, err), err
	}

	s.logger.Info("document ingested", zap.String("title", title), zap.Int("chunks", stored))
	return domain.IngestResult{
		Success:       true,
		Message:       fmt.Sprintf("Document %q ingested (%d chunks)", title, stored),
		ChunksCreated: stored,
	}, nil
}

// IngestBatch ingests every document independently; one document's failure
// never prevents the others from being stored.
func (s *IngestService) IngestBatch(ctx context.Context, docs []domain.Document) domain.IngestResult {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestBatch", telemetry.SpanAttributes{
		Operation: "ingest_batch",
		Count:     len(docs),
	})
	defer span.End()

	results := s.ingestEach(ctx, docs)

	succeeded, chunks := 0, 0
	var failures []string
	for i, r := range results {
		chunks += r.ChunksCreated
		if r.Success {
			succeeded++
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %s", docLabel(docs[i], i), r.Error))
	}

	result := domain.IngestResult{
		Success:       succeeded == len(docs),
		Message:       fmt.Sprintf("Batch ingestion: %d/%d documents succeeded (%d chunks)", succeeded, len(docs), chunks),
		ChunksCreated: chunks,
	}
	if len(failures) > 0 {
		result.Error = strings.Join(failures, "; ")
	}
	return result
}

// IngestEach ingests documents one after another and returns a result per document.
func (s *IngestService) IngestEach(ctx context.Context, docs []domain.Document) []domain.IngestResult {
	return s.ingestEach(ctx, docs)
}

func (s *IngestService) ingestEach(ctx context.Context, docs []domain.Document) []domain.IngestResult {
	results := make([]domain.IngestResult, len(docs))
	for i, doc := range docs {
		results[i], _ = s.Ingest(ctx, doc)
	}
	return results
}

func (s *IngestService) prepare(doc domain.Document) ([]string, error) {
	if strings.TrimSpace(doc.Title) == "" {
		return nil, domain.ErrMissingTitle
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.ErrMissingContent
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(doc.Content)); n < s.cfg.MinContentLength {
		return nil, domain.ErrContentTooShort.Wrap(
			fmt.Errorf("content has %d characters, minimum is %d", n, s.cfg.MinContentLength))
	}

	chunks, err := SplitIntoChunks(doc.Content, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return nil, domain.ErrChunkingFailed.Wrap(err)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrChunkingFailed
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			return nil, domain.ErrChunkingFailed.Wrap(
				fmt.Errorf("chunk %d of %d is blank", i+1, len(chunks)))
		}
	}
	return chunks, nil
}

func (s *IngestService) storeChunks(ctx context.Context, title string, chunks []string, metadata map[string]any) (int, error) {
	total := len(chunks)
	errs := make([]error, total)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, content := range chunks {
		g.Go(func() error {
			errs[i] = s.storeChunk(ctx, title, i, total, content, metadata)
			return nil
		})
	}
	_ = g.Wait()

	stored := 0
	var firstErr error
	for _, err := range errs {
		if err == nil {
			stored++
		} else if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return stored, fmt.Errorf("%d of %d chunks failed: %w", total-stored, total, firstErr)
	}
	return stored, nil
}

func (s *IngestService) storeChunk(ctx context.Context, title string, index, total int, content string, metadata map[string]any) error {
	embedding, err := s.embedder.GenerateEmbedding(ctx, content)
	if err != nil {
		return domain.ErrEmbeddingFailed.Wrap(err)
	}

	meta := make(map[string]any, len(metadata)+3)
	maps.Copy(meta, metadata)
	meta[domain.MetaOriginalTitle] = title
	meta[domain.MetaChunkIndex] = index
	meta[domain.MetaTotalChunks] = total

	chunk := &domain.KnowledgeChunk{
		Title:     fmt.Sprintf("%s (part %d/%d)", title, index+1, total),
		Content:   content,
		Embedding: embedding,
		Metadata:  meta,
	}
	if err := domain.ValidateKnowledgeChunk(chunk, s.cfg.EmbeddingDimensions); err != nil {
		return domain.ErrEmbeddingFailed.Wrap(err)
	}
	if err := s.store.InsertChunk(ctx, chunk); err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			return err
		}
		return domain.ErrStoreWrite.Wrap(err)
	}
	return nil
}

func failedResult(title string, stored int, err error) domain.IngestResult {
	code := domain.ErrCodeInternalError
	var de *domain.DomainError
	if errors.As(err, &de) {
		code = de.Code
	}
	return domain.IngestResult{
		Success:       false,
		Message:       fmt.Sprintf("Failed to ingest document %q: %v", title, err),
		ChunksCreated: stored,
		Error:         code,
	}
}

func docLabel(doc domain.Document, i int) string {
	if t := strings.TrimSpace(doc.Title); t != "" {
		return t
	}
	return fmt.Sprintf("document %d", i+1)
}
