package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/logging"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"go.uber.org/zap"
)

const maxSessionIDLength = 128

// Retriever produces ranked sources for a conversation
type Retriever interface {
	Retrieve(ctx context.Context, messages []domain.Message) (*domain.Retrieval, error)
}

// Generator streams an answer for a system prompt and conversation
type Generator interface {
	StreamChat(ctx context.Context, req openai.ChatRequest) (openai.TokenStream, error)
}

// HistoryWriter appends chat messages
type HistoryWriter interface {
	InsertMessage(ctx context.Context, m *domain.ChatMessage) error
}

// ChatConfig holds generation parameters
type ChatConfig struct {
	Temperature float32
	MaxTokens   int
}

// ChatService drives one chat request from validation to the streamed answer
type ChatService struct {
	retriever Retriever
	generator Generator
	history   HistoryWriter
	cfg       ChatConfig
	uuidGen   UUIDGenerator
	logger    *zap.Logger
}

// NewChatService creates a new ChatService instance
func NewChatService(retriever Retriever, generator Generator, history HistoryWriter, cfg ChatConfig, logger *zap.Logger) *ChatService {
	return NewChatServiceWithUUIDGen(retriever, generator, history, cfg, logger, &DefaultUUIDGenerator{})
}

// NewChatServiceWithUUIDGen creates a new ChatService with custom UUID generator (for testing)
func NewChatServiceWithUUIDGen(retriever Retriever, generator Generator, history HistoryWriter, cfg ChatConfig, logger *zap.Logger, uuidGen UUIDGenerator) *ChatService {
	return &ChatService{
		retriever: retriever,
		generator: generator,
		history:   history,
		cfg:       cfg,
		uuidGen:   uuidGen,
		logger:    logger.Named("chat"),
	}
}

// ChatInput is a validated-shape chat request
type ChatInput struct {
	SessionID string
	Messages  []domain.Message
}

// PreparedChat is everything needed to generate an answer
type PreparedChat struct {
	SessionID    string
	Messages     []domain.Message
	UserQuery    string
	SearchQuery  string
	Sources      []domain.RetrievedMatch
	SystemPrompt string
}

// Prepare validates the conversation, retrieves sources for it and renders
// the system prompt. The user's message is recorded best-effort once the
// request is known to be answerable.
func (s *ChatService) Prepare(ctx context.Context, in ChatInput) (*PreparedChat, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = s.uuidGen.NewString()
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.Prepare", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "prepare",
		Count:     len(in.Messages),
	})
	defer span.End()

	s.enter(ctx, sessionID, domain.StageReceived, zap.Int("messages", len(in.Messages)))

	if len(sessionID) > maxSessionIDLength {
		s.enter(ctx, sessionID, domain.StageErrored, zap.Error(domain.ErrInvalidSessionID))
		return nil, domain.ErrInvalidSessionID
	}
	if err := domain.ValidateConversation(in.Messages); err != nil {
		s.enter(ctx, sessionID, domain.StageErrored, zap.Error(err))
		return nil, err
	}
	s.enter(ctx, sessionID, domain.StageValidated)

	userQuery := domain.LastContent(in.Messages)

	s.enter(ctx, sessionID, domain.StageRetrieving)
	retrieval, err := s.retriever.Retrieve(ctx, in.Messages)
	if err != nil {
		span.SetError(err)
		s.enter(ctx, sessionID, domain.StageErrored, zap.Error(err))
		return nil, err
	}

	s.enter(ctx, sessionID, domain.StageAugmenting,
		zap.String("query", logging.Truncate(retrieval.Query, 100)),
		zap.Int("sources", len(retrieval.Matches)),
	)
	prompt := BuildPrompt(userQuery, retrieval.Matches)

	s.record(ctx, &domain.ChatMessage{
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Message:   userQuery,
	})

	return &PreparedChat{
		SessionID:    sessionID,
		Messages:     in.Messages,
		UserQuery:    userQuery,
		SearchQuery:  retrieval.Query,
		Sources:      retrieval.Matches,
		SystemPrompt: prompt,
	}, nil
}

// Stream generates the answer and hands every token to emit in generation
// order. It returns the text produced so far together with any error; a
// provider failure is reported as domain.ErrGenerationFailed, an emit failure
// is returned unchanged. The assistant message is recorded only after a
// complete answer, independent of the request's cancellation.
func (s *ChatService) Stream(ctx context.Context, p *PreparedChat, emit func(token string) error) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Stream", telemetry.SpanAttributes{
		SessionID: p.SessionID,
		Operation: "stream",
		Count:     len(p.Sources),
	})
	defer span.End()

	s.enter(ctx, p.SessionID, domain.StageGenerating)

	messages := make([]openai.ChatMessage, len(p.Messages))
	for i, m := range p.Messages {
		messages[i] = openai.ChatMessage{Role: string(m.Role), Content: m.Content}
	}

	stream, err := s.generator.StreamChat(ctx, openai.ChatRequest{
		SystemPrompt: p.SystemPrompt,
		Messages:     messages,
		Temperature:  s.cfg.Temperature,
		MaxTokens:    s.cfg.MaxTokens,
	})
	if err != nil {
		err = domain.ErrGenerationFailed.Wrap(err)
		span.SetError(err)
		s.enter(ctx, p.SessionID, domain.StageErrored, zap.Error(err))
		return "", err
	}
	defer stream.Close()

	s.enter(ctx, p.SessionID, domain.StageStreaming)

	var answer strings.Builder
	tokens := 0
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			err = domain.ErrGenerationFailed.Wrap(err)
			span.SetError(err)
			s.enter(ctx, p.SessionID, domain.StageErrored, zap.Int("tokens", tokens), zap.Error(err))
			return answer.String(), err
		}

		answer.WriteString(token)
		tokens++
		if err := emit(token); err != nil {
			s.enter(ctx, p.SessionID, domain.StageErrored, zap.Int("tokens", tokens), zap.Error(err))
			return answer.String(), err
		}
	}

	s.enter(ctx, p.SessionID, domain.StageCompleted, zap.Int("tokens", tokens))

	s.record(context.WithoutCancel(ctx), &domain.ChatMessage{
		SessionID: p.SessionID,
		Role:      domain.RoleAssistant,
		Message:   answer.String(),
		Sources:   p.Sources,
	})

	return answer.String(), nil
}

func (s *ChatService) record(ctx context.Context, m *domain.ChatMessage) {
	if s.history == nil {
		return
	}
	if err := s.history.InsertMessage(ctx, m); err != nil {
		telemetry.CaptureError(ctx, err)
		s.logger.Warn("failed to save chat message",
			zap.String("session_id", m.SessionID),
			zap.String("role", string(m.Role)),
			zap.Error(err),
		)
	}
}

func (s *ChatService) enter(ctx context.Context, sessionID string, stage domain.ChatStage, fields ...zap.Field) {
	telemetry.AddBreadcrumb(ctx, "chat", string(stage))

	fields = append([]zap.Field{
		zap.String("stage", string(stage)),
		zap.String("session_id", sessionID),
	}, fields...)

	if stage == domain.StageErrored {
		s.logger.Warn("chat request failed", fields...)
		return
	}
	s.logger.Debug("chat stage", fields...)
}
