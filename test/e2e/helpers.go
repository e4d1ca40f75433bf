//go:build e2e

package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/cloo-solutions/ragchat/internal/repository"
	"github.com/cloo-solutions/ragchat/internal/server"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/cloo-solutions/ragchat/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	adminToken = "e2e-admin-token"
	dimensions = openai.DefaultEmbeddingDimensions
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	LLM        *testutil.FakeOpenAI
	Server     *httptest.Server
	ServerURL  string
	HTTPClient *http.Client
}

type envOptions struct {
	debug bool
}

// SetupE2EEnv starts Postgres, a fake model provider and the full HTTP stack.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	return setupE2EEnv(t, envOptions{})
}

func setupE2EEnv(t *testing.T, opts envOptions) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC)
	llm := testutil.NewFakeOpenAI(t, dimensions)

	srv := httptest.NewServer(newRouter(pool, llm, opts))

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		LLM:        llm,
		Server:     srv,
		ServerURL:  srv.URL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// newRouter wires the same components as ragchatd serve.
func newRouter(pool *pgxpool.Pool, llm *testutil.FakeOpenAI, opts envOptions) http.Handler {
	logger := zap.NewNop()

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              "test-key",
		BaseURL:             llm.BaseURL(),
		EmbeddingModel:      goopenai.SmallEmbedding3,
		EmbeddingDimensions: dimensions,
		MaxRetries:          0,
		Logger:              logger,
	})

	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	historyRepo := repository.NewChatHistoryRepository(pool)

	ingestSvc := service.NewIngestService(knowledgeRepo, client, service.DefaultIngestConfig(), logger)
	retrievalSvc := service.NewRetrievalService(knowledgeRepo, client, service.RetrievalConfig{Threshold: 0.25, Count: 5}, logger)
	chatSvc := service.NewChatService(retrievalSvc, client, historyRepo, service.ChatConfig{Temperature: 0.3, MaxTokens: 1000}, logger)
	diagnosticsSvc := service.NewDiagnosticsService(knowledgeRepo, retrievalSvc, dimensions, logger)

	seed := func(ctx context.Context) *service.SeedReport {
		return service.Seed(ctx, ingestSvc, service.SeedDocuments)
	}

	return server.NewRouter(server.RouterConfig{
		Logger:         logger,
		AdminToken:     adminToken,
		Debug:          opts.debug,
		ChatHandler:    handlers.NewChatHandler(chatSvc, opts.debug, logger),
		HistoryHandler: handlers.NewHistoryHandler(service.NewHistoryService(historyRepo)),
		IngestHandler:  handlers.NewIngestHandler(ingestSvc, seed),
		HealthHandler:  handlers.NewHealthHandler(diagnosticsSvc),
	})
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Response is a decoded HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Data unmarshals the "data" envelope into v.
func (r *Response) Data(v any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, v)
}

// JSON unmarshals the whole body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*Response, error) {
	return e.doRequest(http.MethodGet, path, nil, "")
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body any, authToken string) (*Response, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*Response, error) {
	return e.doRequest(http.MethodDelete, path, nil, "")
}

func (e *E2ETestEnv) doRequest(method, path string, body any, authToken string) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// Event is one server-sent event
type Event struct {
	Name string
	Data string
}

// ChatResult is a fully read chat response
type ChatResult struct {
	*Response
	Events []Event
}

// Answer concatenates the token events.
func (c *ChatResult) Answer() string {
	var sb strings.Builder
	for _, ev := range c.Events {
		if ev.Name != "token" {
			continue
		}
		var tok struct {
			Content string `json:"content"`
		}
		if json.Unmarshal([]byte(ev.Data), &tok) == nil {
			sb.WriteString(tok.Content)
		}
	}
	return sb.String()
}

// Last returns the final event, or the zero Event.
func (c *ChatResult) Last() Event {
	if len(c.Events) == 0 {
		return Event{}
	}
	return c.Events[len(c.Events)-1]
}

// Chat posts to /chat and reads the whole event stream.
func (e *E2ETestEnv) Chat(body any) (*ChatResult, error) {
	resp, err := e.Post("/chat", body, "")
	if err != nil {
		return nil, err
	}

	result := &ChatResult{Response: resp}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return result, nil
	}

	var current Event
	scanner := bufio.NewScanner(bytes.NewReader(resp.Body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current.Name != "" || current.Data != "" {
				result.Events = append(result.Events, current)
			}
			current = Event{}
		case strings.HasPrefix(line, "event: "):
			current.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = strings.TrimPrefix(line, "data: ")
		}
	}
	return result, scanner.Err()
}

// Ask sends a single user question, optionally within a session.
func (e *E2ETestEnv) Ask(sessionID, question string) (*ChatResult, error) {
	body := map[string]any{
		"messages": []map[string]string{{"role": "user", "content": question}},
	}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	return e.Chat(body)
}

// Seed loads the built-in corpus through the API.
func (e *E2ETestEnv) Seed() {
	resp, err := e.Post("/seed", struct{}{}, adminToken)
	if err != nil {
		e.T.Fatalf("seed request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		e.T.Fatalf("seed failed with status %d: %s", resp.StatusCode, resp.Body)
	}
}
