package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
)

const maxBatchDocuments = 100

type IngestService interface {
	Ingest(ctx context.Context, doc domain.Document) (domain.IngestResult, error)
	IngestBatch(ctx context.Context, docs []domain.Document) domain.IngestResult
}

// Seeder loads the built-in sample corpus
type Seeder func(ctx context.Context) *service.SeedReport

type IngestHandler struct {
	svc  IngestService
	seed Seeder
}

func NewIngestHandler(svc IngestService, seed Seeder) *IngestHandler {
	return &IngestHandler{svc: svc, seed: seed}
}

type IngestRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type IngestBatchRequest struct {
	Documents []IngestRequest `json:"documents"`
}

type SeedResponse struct {
	*service.SeedReport
	Summary string `json:"summary"`
}

func (req IngestRequest) document() domain.Document {
	return domain.Document{Title: req.Title, Content: req.Content, Metadata: req.Metadata}
}

// Ingest stores one document. The body is always an IngestResult; the status
// reflects why ingestion failed.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Ingest(r.Context(), req.document())
	if err != nil {
		api.JSON(w, api.DomainErrorToHTTP(err), result)
		return
	}

	api.JSON(w, http.StatusCreated, result)
}

// IngestBatch stores every document independently. Partial failure is
// reported in the result body with status 207.
func (h *IngestHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req IngestBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		api.Error(w, http.StatusBadRequest, "documents are required")
		return
	}
	if len(req.Documents) > maxBatchDocuments {
		api.Error(w, http.StatusBadRequest, "too many documents")
		return
	}

	docs := make([]domain.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = d.document()
	}

	result := h.svc.IngestBatch(r.Context(), docs)

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusMultiStatus
	}
	api.JSON(w, status, result)
}

func (h *IngestHandler) Seed(w http.ResponseWriter, r *http.Request) {
	report := h.seed(r.Context())

	status := http.StatusOK
	if report.Succeeded == 0 && report.Total > 0 {
		status = http.StatusInternalServerError
	}
	api.JSON(w, status, SeedResponse{SeedReport: report, Summary: report.Summary()})
}
