package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIngestService(store *MockKnowledgeStore, embedder *MockEmbeddingClient) *IngestService {
	cfg := DefaultIngestConfig()
	cfg.EmbeddingDimensions = len(testVector(0))
	return NewIngestService(store, embedder, cfg, zap.NewNop())
}

type capturedChunks struct {
	mu     sync.Mutex
	chunks []*domain.KnowledgeChunk
}

func (c *capturedChunks) add(args mock.Arguments) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, args.Get(1).(*domain.KnowledgeChunk))
}

func (c *capturedChunks) byIndex() map[int]*domain.KnowledgeChunk {
	out := make(map[int]*domain.KnowledgeChunk)
	for _, ch := range c.chunks {
		out[ch.Metadata[domain.MetaChunkIndex].(int)] = ch
	}
	return out
}

func TestIngestService_Ingest_SixHundredCharactersMakesTwoChunks(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	content := strings.Repeat("0123456789", 60)
	captured := &capturedChunks{}

	embedder.On("GenerateEmbedding", mock.Anything, mock.AnythingOfType("string")).Return(testVector(1), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Run(captured.add).Return(nil)

	result, err := svc.Ingest(context.Background(), domain.Document{
		Title:    "X",
		Content:  content,
		Metadata: map[string]any{"category": "demo"},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ChunksCreated)
	assert.Empty(t, result.Error)

	require.Len(t, captured.chunks, 2)
	chunks := captured.byIndex()

	first, second := chunks[0], chunks[1]
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "X (part 1/2)", first.Title)
	assert.Equal(t, "X (part 2/2)", second.Title)
	assert.Equal(t, content[:512], first.Content)
	assert.Equal(t, content[462:], second.Content)
	for _, c := range []*domain.KnowledgeChunk{first, second} {
		assert.Equal(t, "X", c.Metadata[domain.MetaOriginalTitle])
		assert.Equal(t, 2, c.Metadata[domain.MetaTotalChunks])
		assert.Equal(t, "demo", c.Metadata["category"])
		assert.Equal(t, testVector(1), c.Embedding)
	}

	embedder.AssertNumberOfCalls(t, "GenerateEmbedding", 2)
}

func TestIngestService_Ingest_ValidationFailuresSkipStore(t *testing.T) {
	tests := []struct {
		name     string
		doc      domain.Document
		wantErr  error
		wantCode string
	}{
		{"missing title", domain.Document{Title: "  ", Content: strings.Repeat("a", 100)}, domain.ErrMissingTitle, domain.ErrCodeInvalidInput},
		{"missing content", domain.Document{Title: "t", Content: ""}, domain.ErrMissingContent, domain.ErrCodeInvalidInput},
		{"too short", domain.Document{Title: "t", Content: strings.Repeat("a", 49)}, domain.ErrContentTooShort, domain.ErrCodeContentTooShort},
		{"short after trimming", domain.Document{Title: "t", Content: strings.Repeat(" ", 49) + "x"}, domain.ErrContentTooShort, domain.ErrCodeContentTooShort},
		{"blank window", domain.Document{Title: "t", Content: strings.Repeat("a", 100) + strings.Repeat(" ", 1000) + strings.Repeat("b", 100)}, domain.ErrChunkingFailed, domain.ErrCodeChunkingFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockKnowledgeStore)
			embedder := new(MockEmbeddingClient)
			svc := newTestIngestService(store, embedder)

			result, err := svc.Ingest(context.Background(), tt.doc)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, result.Success)
			assert.Equal(t, 0, result.ChunksCreated)
			assert.Equal(t, tt.wantCode, result.Error)
			store.AssertNotCalled(t, "InsertChunk", mock.Anything, mock.Anything)
			embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestService_Ingest_MinimumLengthIsInclusive(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(1), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Ingest(context.Background(), domain.Document{Title: "t", Content: strings.Repeat("b", 50)})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksCreated)
}

func TestIngestService_Ingest_WrongEmbeddingWidthIsNotStored(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 2}, nil)

	result, err := svc.Ingest(context.Background(), domain.Document{Title: "t", Content: strings.Repeat("d", 60)})

	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
	assert.False(t, result.Success)
	assert.Equal(t, domain.ErrCodeEmbedding, result.Error)
	assert.Contains(t, result.Message, "wrong dimensions")
	store.AssertNotCalled(t, "InsertChunk", mock.Anything, mock.Anything)
}

func TestIngestService_Ingest_InvalidChunkConfig(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := NewIngestService(store, embedder, IngestConfig{ChunkSize: 10, ChunkOverlap: 10, MinContentLength: 1, Concurrency: 1}, zap.NewNop())

	result, err := svc.Ingest(context.Background(), domain.Document{Title: "t", Content: "some content"})

	assert.ErrorIs(t, err, domain.ErrChunkingFailed)
	assert.Equal(t, domain.ErrCodeChunkingFailed, result.Error)
}

func TestIngestService_Ingest_OneChunkFailureDoesNotCancelSiblings(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := NewIngestService(store, embedder, IngestConfig{ChunkSize: 10, ChunkOverlap: 0, MinContentLength: 1, Concurrency: 3}, zap.NewNop())

	content := "aaaaaaaaaabbbbbbbbbbcccccccccc"
	embedder.On("GenerateEmbedding", mock.Anything, "bbbbbbbbbb").Return(nil, errors.New("rate limited"))
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(2), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Ingest(context.Background(), domain.Document{Title: "abc", Content: content})

	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.ChunksCreated)
	assert.Equal(t, domain.ErrCodeEmbedding, result.Error)
	store.AssertNumberOfCalls(t, "InsertChunk", 2)
}

func TestIngestService_Ingest_StoreFailureIsWrapped(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(1), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	result, err := svc.Ingest(context.Background(), domain.Document{Title: "t", Content: strings.Repeat("c", 60)})

	assert.ErrorIs(t, err, domain.ErrStoreWrite)
	assert.Equal(t, domain.ErrCodeStoreWrite, result.Error)
	assert.Contains(t, result.Message, "connection refused")
}

func TestIngestService_IngestBatch_IsolatesFailures(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(1), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Return(nil)

	docs := []domain.Document{
		{Title: "Valid A", Content: strings.Repeat("a", 600)},
		{Title: "Too short", Content: "tiny"},
		{Title: "Valid B", Content: strings.Repeat("b", 100)},
	}

	result := svc.IngestBatch(context.Background(), docs)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ChunksCreated)
	assert.Equal(t, "Batch ingestion: 2/3 documents succeeded (3 chunks)", result.Message)
	assert.Contains(t, result.Error, "Too short: CONTENT_TOO_SHORT")
	store.AssertNumberOfCalls(t, "InsertChunk", 3)
}

func TestIngestService_IngestBatch_AllSucceed(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(1), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Return(nil)

	result := svc.IngestBatch(context.Background(), []domain.Document{
		{Title: "A", Content: strings.Repeat("a", 60)},
		{Title: "B", Content: strings.Repeat("b", 60)},
	})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ChunksCreated)
	assert.Empty(t, result.Error)
}

func TestIngestService_IngestBatch_Empty(t *testing.T) {
	svc := newTestIngestService(new(MockKnowledgeStore), new(MockEmbeddingClient))

	result := svc.IngestBatch(context.Background(), nil)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ChunksCreated)
}
