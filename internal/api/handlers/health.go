package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/service"
)

const defaultDebugQuery = "Angular"

type DiagnosticsService interface {
	StoreHealth(ctx context.Context) (*service.StoreHealth, error)
	DebugPrompt(ctx context.Context, query string) (*service.PromptDebug, error)
}

type HealthHandler struct {
	svc DiagnosticsService
}

func NewHealthHandler(svc DiagnosticsService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Database reports 200 when retrieval can work, 503 when the store is
// reachable but degraded and 500 when it cannot be reached.
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	health, err := h.svc.StoreHealth(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	api.Success(w, status, health)
}

func (h *HealthHandler) DebugPrompt(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		query = defaultDebugQuery
	}

	debug, err := h.svc.DebugPrompt(r.Context(), query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, debug)
}
