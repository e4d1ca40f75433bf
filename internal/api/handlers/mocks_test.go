package handlers

import (
	"context"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Prepare(ctx context.Context, in service.ChatInput) (*service.PreparedChat, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PreparedChat), args.Error(1)
}

func (m *MockChatService) Stream(ctx context.Context, p *service.PreparedChat, emit func(token string) error) (string, error) {
	args := m.Called(ctx, p, emit)
	return args.String(0), args.Error(1)
}

// emitting returns a Run function that feeds tokens to the emit callback.
func emitting(tokens ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		emit := args.Get(2).(func(string) error)
		for _, t := range tokens {
			if err := emit(t); err != nil {
				return
			}
		}
	}
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockHistoryService) ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *MockHistoryService) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, doc domain.Document) (domain.IngestResult, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(domain.IngestResult), args.Error(1)
}

func (m *MockIngestService) IngestBatch(ctx context.Context, docs []domain.Document) domain.IngestResult {
	args := m.Called(ctx, docs)
	return args.Get(0).(domain.IngestResult)
}

type MockDiagnosticsService struct {
	mock.Mock
}

func (m *MockDiagnosticsService) StoreHealth(ctx context.Context) (*service.StoreHealth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StoreHealth), args.Error(1)
}

func (m *MockDiagnosticsService) DebugPrompt(ctx context.Context, query string) (*service.PromptDebug, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PromptDebug), args.Error(1)
}
