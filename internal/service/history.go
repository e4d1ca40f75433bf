package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// HistoryStore reads and deletes chat history
type HistoryStore interface {
	ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	ListSessions(ctx context.Context) ([]domain.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}

// HistoryService exposes stored conversations
type HistoryService struct {
	store HistoryStore
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(store HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// ListSessions returns all sessions, most recent first
func (s *HistoryService) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "HistoryService.ListSessions", telemetry.SpanAttributes{
		Operation: "list_sessions",
	})
	defer span.End()

	return s.store.ListSessions(ctx)
}

// ListMessages returns the messages of one session in chronological order
func (s *HistoryService) ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return nil, domain.ErrInvalidSessionID
	}

	ctx, span := telemetry.StartSpan(ctx, "HistoryService.ListMessages", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "list_messages",
	})
	defer span.End()

	return s.store.ListMessages(ctx, sessionID)
}

// DeleteSession removes a session. It reports success for unknown sessions too.
func (s *HistoryService) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return false, domain.ErrInvalidSessionID
	}

	ctx, span := telemetry.StartSpan(ctx, "HistoryService.DeleteSession", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "delete_session",
	})
	defer span.End()

	if _, err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return false, err
	}
	return true, nil
}
