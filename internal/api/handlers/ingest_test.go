package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func noSeed(context.Context) *service.SeedReport { return &service.SeedReport{} }

func TestIngestHandler_Ingest(t *testing.T) {
	mockSvc := new(MockIngestService)
	h := NewIngestHandler(mockSvc, noSeed)

	doc := domain.Document{Title: "X", Content: strings.Repeat("a", 60), Metadata: map[string]any{"category": "demo"}}
	mockSvc.On("Ingest", mock.Anything, doc).Return(domain.IngestResult{
		Success: true, Message: `Document "X" ingested (1 chunks)`, ChunksCreated: 1,
	}, nil)

	body, _ := json.Marshal(IngestRequest{Title: doc.Title, Content: doc.Content, Metadata: doc.Metadata})
	w := httptest.NewRecorder()
	h.Ingest(w, httptest.NewRequest(http.MethodPost, "/ingest", bytes.NewReader(body)))

	assert.Equal(t, http.StatusCreated, w.Code)
	var result domain.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ChunksCreated)
}

func TestIngestHandler_Ingest_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"too short", domain.ErrContentTooShort, http.StatusBadRequest},
		{"missing title", domain.ErrMissingTitle, http.StatusBadRequest},
		{"embedding outage", domain.ErrEmbeddingFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockIngestService)
			h := NewIngestHandler(mockSvc, noSeed)

			mockSvc.On("Ingest", mock.Anything, mock.Anything).Return(domain.IngestResult{
				Success: false, Message: "failed", Error: tt.err.(*domain.DomainError).Code,
			}, tt.err)

			w := httptest.NewRecorder()
			h.Ingest(w, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"title":"t","content":"c"}`)))

			assert.Equal(t, tt.status, w.Code)
			var result domain.IngestResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Error)
		})
	}
}

func TestIngestHandler_Ingest_InvalidBody(t *testing.T) {
	mockSvc := new(MockIngestService)
	h := NewIngestHandler(mockSvc, noSeed)

	w := httptest.NewRecorder()
	h.Ingest(w, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestIngestHandler_IngestBatch_PartialFailure(t *testing.T) {
	mockSvc := new(MockIngestService)
	h := NewIngestHandler(mockSvc, noSeed)

	mockSvc.On("IngestBatch", mock.Anything, mock.MatchedBy(func(docs []domain.Document) bool {
		return len(docs) == 2 && docs[0].Title == "A" && docs[1].Title == "B"
	})).Return(domain.IngestResult{
		Success: false, Message: "Batch ingestion: 1/2 documents succeeded (2 chunks)", ChunksCreated: 2,
		Error: "B: CONTENT_TOO_SHORT",
	})

	w := httptest.NewRecorder()
	h.IngestBatch(w, httptest.NewRequest(http.MethodPost, "/ingest/batch",
		strings.NewReader(`{"documents":[{"title":"A","content":"long"},{"title":"B","content":"x"}]}`)))

	assert.Equal(t, http.StatusMultiStatus, w.Code)
	var result domain.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.ChunksCreated)
	assert.Contains(t, result.Error, "CONTENT_TOO_SHORT")
}

func TestIngestHandler_IngestBatch_AllSucceeded(t *testing.T) {
	mockSvc := new(MockIngestService)
	h := NewIngestHandler(mockSvc, noSeed)

	mockSvc.On("IngestBatch", mock.Anything, mock.Anything).Return(domain.IngestResult{Success: true, ChunksCreated: 1})

	w := httptest.NewRecorder()
	h.IngestBatch(w, httptest.NewRequest(http.MethodPost, "/ingest/batch",
		strings.NewReader(`{"documents":[{"title":"A","content":"long"}]}`)))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestIngestHandler_IngestBatch_Empty(t *testing.T) {
	mockSvc := new(MockIngestService)
	h := NewIngestHandler(mockSvc, noSeed)

	w := httptest.NewRecorder()
	h.IngestBatch(w, httptest.NewRequest(http.MethodPost, "/ingest/batch", strings.NewReader(`{"documents":[]}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "IngestBatch", mock.Anything, mock.Anything)
}

func TestIngestHandler_Seed(t *testing.T) {
	report := &service.SeedReport{Succeeded: 14, Total: 15, Chunks: 14, Failures: []string{"X: failed"}}
	h := NewIngestHandler(new(MockIngestService), func(context.Context) *service.SeedReport { return report })

	w := httptest.NewRecorder()
	h.Seed(w, httptest.NewRequest(http.MethodPost, "/seed", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 14, resp["succeeded"])
	assert.EqualValues(t, 15, resp["total"])
	assert.Contains(t, resp["summary"], "14/15 documents stored")
}

func TestIngestHandler_Seed_AllFailed(t *testing.T) {
	report := &service.SeedReport{Succeeded: 0, Total: 15}
	h := NewIngestHandler(new(MockIngestService), func(context.Context) *service.SeedReport { return report })

	w := httptest.NewRecorder()
	h.Seed(w, httptest.NewRequest(http.MethodPost, "/seed", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
