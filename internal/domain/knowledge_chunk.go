package domain

import "time"

// Metadata keys written on every ingested chunk.
const (
	MetaOriginalTitle = "originalTitle"
	MetaChunkIndex    = "chunkIndex"
	MetaTotalChunks   = "totalChunks"
	MetaCategory      = "category"
	MetaSource        = "source"
)

// KnowledgeChunk is a stored slice of a document with its embedding.
type KnowledgeChunk struct {
	ID        string
	Title     string
	Content   string
	Embedding []float32
	Metadata  map[string]any
	CreatedAt time.Time
}

// ValidateKnowledgeChunk validates a chunk before it is written to the store
func ValidateKnowledgeChunk(c *KnowledgeChunk, dimensions int) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "knowledge chunk cannot be nil")
	}
	if c.Title == "" {
		return NewDomainError(ErrCodeValidation, "knowledge chunk title is required")
	}
	if c.Content == "" {
		return NewDomainError(ErrCodeValidation, "knowledge chunk content is required")
	}
	if dimensions > 0 && len(c.Embedding) != dimensions {
		return NewDomainError(ErrCodeValidation, "knowledge chunk embedding has wrong dimensions")
	}
	return nil
}

// RetrievedMatch is a chunk returned by a similarity search.
type RetrievedMatch struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}

// Retrieval is the outcome of one retrieval call: the query that was
// embedded and the matches in store order.
type Retrieval struct {
	Query   string
	Matches []RetrievedMatch
}

// Document is an ingestion request.
type Document struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IngestResult reports the outcome of ingesting one or more documents.
type IngestResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ChunksCreated int    `json:"chunksCreated"`
	Error         string `json:"error,omitempty"`
}
