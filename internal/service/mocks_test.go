package service

import (
	"context"
	"io"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockKnowledgeStore struct {
	mock.Mock
}

func (m *MockKnowledgeStore) InsertChunk(ctx context.Context, c *domain.KnowledgeChunk) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockKnowledgeStore) SimilaritySearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.RetrievedMatch, error) {
	args := m.Called(ctx, embedding, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedMatch), args.Error(1)
}

func (m *MockKnowledgeStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockKnowledgeStore) HasMatchFunction(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockHistoryStore) ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *MockHistoryStore) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockHistoryStore) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) StreamChat(ctx context.Context, req openai.ChatRequest) (openai.TokenStream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(openai.TokenStream), args.Error(1)
}

func testVector(seed float32) []float32 {
	return []float32{seed, seed + 1, seed + 2}
}

func (m *MockKnowledgeStore) SampleEmbeddingDimensions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, messages []domain.Message) (*domain.Retrieval, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Retrieval), args.Error(1)
}

func (m *MockRetriever) Search(ctx context.Context, query string) (*domain.Retrieval, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Retrieval), args.Error(1)
}

// fakeTokenStream replays tokens, then returns err (io.EOF when nil).
type fakeTokenStream struct {
	tokens []string
	err    error
	pos    int
	closed bool
}

func (s *fakeTokenStream) Recv() (string, error) {
	if s.pos < len(s.tokens) {
		t := s.tokens[s.pos]
		s.pos++
		return t, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeTokenStream) Close() error {
	s.closed = true
	return nil
}

type fixedUUIDGen struct {
	id string
}

func (g fixedUUIDGen) NewString() string { return g.id }
