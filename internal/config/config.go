package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// SchemaEmbeddingDimensions is the width of the knowledge_base vector column.
const SchemaEmbeddingDimensions = 1536

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string  `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingMaxRetries int     `envconfig:"EMBEDDING_MAX_RETRIES" default:"2"`
	ChatModel           string  `envconfig:"CHAT_MODEL" default:"gpt-4-turbo"`
	Temperature         float32 `envconfig:"TEMPERATURE" default:"0.3"`
	MaxTokens           int     `envconfig:"MAX_TOKENS" default:"1000"`

	// Retrieval policy
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.3"`
	MatchCount     int     `envconfig:"MATCH_COUNT" default:"5"`

	// Ingestion policy, in characters
	ChunkSize         int `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap      int `envconfig:"CHUNK_OVERLAP" default:"50"`
	MinContentLength  int `envconfig:"MIN_CONTENT_LENGTH" default:"50"`
	IngestConcurrency int `envconfig:"INGEST_CONCURRENCY" default:"4"`

	MaxMessageLength int `envconfig:"MAX_MESSAGE_LENGTH" default:"500"`

	// Protects /ingest, /ingest/batch and /seed when set
	AdminToken string `envconfig:"ADMIN_TOKEN"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RAGCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the numeric policy settings for consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be in [0, 1], got %g", c.MatchThreshold))
	}
	if c.MatchCount <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_COUNT must be positive, got %d", c.MatchCount))
	}
	if c.EmbeddingDimensions != SchemaEmbeddingDimensions {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSIONS must be %d to match the stored vectors, got %d",
			SchemaEmbeddingDimensions, c.EmbeddingDimensions))
	}
	if c.EmbeddingMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_MAX_RETRIES cannot be negative, got %d", c.EmbeddingMaxRetries))
	}
	if c.IngestConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("INGEST_CONCURRENCY must be positive, got %d", c.IngestConcurrency))
	}
	return errors.Join(errs...)
}

func (c *Config) HasS3() bool {
	return c.S3Bucket != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// TracesSampleRate samples every transaction outside production.
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "production" {
		return 0.1
	}
	return 1.0
}
