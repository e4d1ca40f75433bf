package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSeedDocuments_AreIngestible(t *testing.T) {
	cfg := DefaultIngestConfig()
	assert.Len(t, SeedDocuments, 15)

	seen := make(map[string]bool)
	for _, doc := range SeedDocuments {
		assert.False(t, seen[doc.Title], "duplicate title %q", doc.Title)
		seen[doc.Title] = true
		assert.GreaterOrEqual(t, len([]rune(doc.Content)), cfg.MinContentLength, doc.Title)
		assert.NotEmpty(t, doc.Metadata[domain.MetaCategory])
		assert.NotEmpty(t, doc.Metadata[domain.MetaSource])
	}
}

func TestSeed_ReportsPerDocumentOutcome(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	docs := []domain.Document{
		{Title: "Good", Content: SeedDocuments[0].Content},
		{Title: "Short", Content: "too short"},
		{Title: "Also good", Content: SeedDocuments[1].Content},
	}
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(1), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Return(nil)

	report := Seed(context.Background(), svc, docs)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Chunks)
	assert.Len(t, report.Results, 3)
	assert.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "Short:")

	summary := report.Summary()
	assert.Contains(t, summary, "2/3 documents stored (2 chunks)")
	assert.Contains(t, summary, "Errors:")
}

func TestSeed_SummaryWithoutFailures(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(testVector(1), nil)
	store.On("InsertChunk", mock.Anything, mock.Anything).Return(nil)

	report := Seed(context.Background(), svc, SeedDocuments)

	assert.Equal(t, 15, report.Succeeded)
	assert.NotContains(t, report.Summary(), "Errors:")
}

func TestSeed_EmbeddingOutage(t *testing.T) {
	store := new(MockKnowledgeStore)
	embedder := new(MockEmbeddingClient)
	svc := newTestIngestService(store, embedder)

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("503"))

	report := Seed(context.Background(), svc, SeedDocuments[:2])

	assert.Zero(t, report.Succeeded)
	assert.Len(t, report.Failures, 2)
	store.AssertNotCalled(t, "InsertChunk", mock.Anything, mock.Anything)
}
