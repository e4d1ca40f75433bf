package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
	"go.uber.org/zap"
)

const maxQueryHeaderLength = 200

const noSourcesDebugMessage = "No sources found although the knowledge base was reachable."

var (
	lineBreaks   = regexp.MustCompile(`[\r\n]+`)
	nonPrintable = regexp.MustCompile(`[^\x20-\x7E]+`)
)

type ChatService interface {
	Prepare(ctx context.Context, in service.ChatInput) (*service.PreparedChat, error)
	Stream(ctx context.Context, p *service.PreparedChat, emit func(token string) error) (string, error)
}

type ChatHandler struct {
	svc    ChatService
	debug  bool
	logger *zap.Logger
}

// NewChatHandler creates the chat endpoint. With debug set, a conversation
// that retrieves no sources is answered with a diagnostic JSON payload
// instead of a generated answer.
func NewChatHandler(svc ChatService, debug bool, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, debug: debug, logger: logger.Named("chat_handler")}
}

type ChatRequest struct {
	SessionID string       `json:"session_id"`
	Messages  []rawMessage `json:"messages"`
}

// rawMessage keeps role and content untyped so wrong JSON types are reported
// as validation errors instead of decode errors.
type rawMessage struct {
	Role    any `json:"role"`
	Content any `json:"content"`
}

type tokenEvent struct {
	Content string `json:"content"`
}

type doneEvent struct {
	SessionID string                  `json:"session_id"`
	Sources   int                     `json:"sources"`
	Query     string                  `json:"query"`
	Matches   []domain.RetrievedMatch `json:"matches"`
}

type debugResponse struct {
	Debug     bool                    `json:"debug"`
	SessionID string                  `json:"session_id"`
	Query     string                  `json:"query"`
	Sources   []domain.RetrievedMatch `json:"sources"`
	Message   string                  `json:"message"`
}

// ParseMessages converts decoded request messages into a typed conversation.
func ParseMessages(raw []rawMessage) ([]domain.Message, error) {
	if len(raw) == 0 {
		return nil, domain.ErrEmptyConversation
	}
	out := make([]domain.Message, len(raw))
	for i, m := range raw {
		roleStr, ok := m.Role.(string)
		if !ok {
			return nil, domain.ErrInvalidRole
		}
		role, ok := domain.ParseRole(roleStr)
		if !ok {
			return nil, domain.ErrInvalidRole
		}
		content, ok := m.Content.(string)
		if !ok {
			return nil, domain.ErrInvalidContent
		}
		out[i] = domain.Message{Role: role, Content: content}
	}
	return out, nil
}

// SanitizeQueryHeader makes a search query safe for an HTTP header:
// line breaks become spaces, anything outside printable ASCII is dropped and
// the result is capped at 200 bytes.
func SanitizeQueryHeader(q string) string {
	q = lineBreaks.ReplaceAllString(q, " ")
	q = nonPrintable.ReplaceAllString(q, "")
	if len(q) > maxQueryHeaderLength {
		q = q[:maxQueryHeaderLength]
	}
	return q
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	messages, err := ParseMessages(req.Messages)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	prepared, err := h.svc.Prepare(r.Context(), service.ChatInput{
		SessionID: req.SessionID,
		Messages:  messages,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	safeQuery := SanitizeQueryHeader(prepared.SearchQuery)

	if h.debug && len(prepared.Sources) == 0 {
		h.logger.Warn("no sources found, skipping generation",
			zap.String("session_id", prepared.SessionID),
			zap.String("query", safeQuery),
		)
		api.JSON(w, http.StatusOK, debugResponse{
			Debug:     true,
			SessionID: prepared.SessionID,
			Query:     prepared.SearchQuery,
			Sources:   prepared.Sources,
			Message:   noSourcesDebugMessage,
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-RAG-Sources", strconv.Itoa(len(prepared.Sources)))
	w.Header().Set("X-RAG-Query", safeQuery)
	w.Header().Set("X-RAG-Session", prepared.SessionID)
	w.WriteHeader(http.StatusOK)

	sse := newEventWriter(w)
	_, err = h.svc.Stream(r.Context(), prepared, func(token string) error {
		return sse.Send("token", tokenEvent{Content: token})
	})
	if err != nil {
		if errors.Is(err, domain.ErrGenerationFailed) {
			_ = sse.Send("error", api.ErrorBody(err))
			return
		}
		h.logger.Info("chat stream aborted",
			zap.String("session_id", prepared.SessionID),
			zap.Error(err),
		)
		return
	}

	_ = sse.Send("done", doneEvent{
		SessionID: prepared.SessionID,
		Sources:   len(prepared.Sources),
		Query:     safeQuery,
		Matches:   prepared.Sources,
	})
}

// eventWriter frames server-sent events and flushes after each one.
type eventWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	return &eventWriter{w: w, rc: http.NewResponseController(w)}
}

func (e *eventWriter) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	if err := e.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
