package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/go-chi/chi/v5"
)

type HistoryService interface {
	ListSessions(ctx context.Context) ([]domain.ChatSession, error)
	ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
}

type HistoryHandler struct {
	svc HistoryService
}

func NewHistoryHandler(svc HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

type SessionListResponse struct {
	Sessions []domain.ChatSession `json:"sessions"`
}

type MessageListResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []domain.ChatMessage `json:"messages"`
}

type DeleteSessionResponse struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

func (h *HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if sessions == nil {
		sessions = []domain.ChatSession{}
	}

	api.Success(w, http.StatusOK, SessionListResponse{Sessions: sessions})
}

func (h *HistoryHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	messages, err := h.svc.ListMessages(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	api.Success(w, http.StatusOK, MessageListResponse{SessionID: id, Messages: messages})
}

func (h *HistoryHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	deleted, err := h.svc.DeleteSession(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteSessionResponse{SessionID: id, Deleted: deleted})
}
