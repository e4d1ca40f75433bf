package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the vector width of the knowledge table
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is used for answer generation when none is configured
	DefaultChatModel = openai.GPT4Turbo
	// DefaultMaxRetries bounds retries of transient embedding failures
	DefaultMaxRetries = 2

	vectorPreviewLength = 5
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoEmbeddingData is returned when the provider answers without a vector
	ErrNoEmbeddingData = errors.New("no embedding data returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ChatStream is a server-sent stream of completion chunks
type ChatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// ChatAPI defines the interface for streaming chat completions
type ChatAPI interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api        EmbeddingAPI
	chat       ChatAPI
	dimensions int
	chatModel  string
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel, dimensions int) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	}
	// ada-002 rejects the dimensions parameter
	if a.model != openai.AdaEmbeddingV2 {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingData
	}

	return resp.Data[0].Embedding, nil
}

// CreateChatCompletionStream opens a streaming chat completion
func (a *OpenAIAdapter) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error) {
	return a.client.CreateChatCompletionStream(ctx, req)
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	MaxRetries          int
	Logger              *zap.Logger
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey, MaxRetries: DefaultMaxRetries})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	adapter := NewOpenAIAdapter(openai.NewClientWithConfig(clientCfg), cfg.EmbeddingModel, dimensions)

	return newClient(adapter, adapter, dimensions, cfg)
}

func newClient(api EmbeddingAPI, chat ChatAPI, dimensions int, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		api:        api,
		chat:       chat,
		dimensions: dimensions,
		chatModel:  chatModel,
		maxRetries: maxRetries,
		newBackOff: defaultBackOff,
		logger:     logger.Named("openai"),
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return b
}

// GenerateEmbedding generates an embedding for the given text.
// Rate limits, server errors and transport failures are retried up to the
// configured limit; every other failure returns immediately.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	var embedding []float32
	attempt := 0
	op := func() error {
		attempt++
		vec, err := c.api.CreateEmbeddings(ctx, text)
		if err != nil {
			if !isRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(vec) != c.dimensions {
			return backoff.Permanent(fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(vec)))
		}
		embedding = vec
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("embedding attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		if errors.Is(err, ErrWrongDimensions) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	c.logger.Debug("embedding generated",
		zap.Int("text_length", len([]rune(text))),
		zap.Int("dimensions", len(embedding)),
		zap.Float32s("preview", embedding[:min(vectorPreviewLength, len(embedding))]),
		zap.Int("attempts", attempt),
	)

	return embedding, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode)
	}

	if errors.Is(err, ErrNoEmbeddingData) {
		return false
	}

	// transport level failure without a status code
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
