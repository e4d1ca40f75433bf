package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so a wrapped sentinel still matches errors.Is against the bare sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of the error carrying err as its cause
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeContentTooShort = "CONTENT_TOO_SHORT"
	ErrCodeChunkingFailed  = "CHUNKING_FAILED"
	ErrCodeEmbedding       = "EMBEDDING_FAILED"
	ErrCodeStoreWrite      = "STORE_WRITE_FAILED"
	ErrCodeStoreRead       = "STORE_READ_FAILED"
	ErrCodeKnowledgeBase   = "KNOWLEDGE_BASE_UNAVAILABLE"
	ErrCodeGeneration      = "GENERATION_FAILED"
)

// Validation errors
var (
	ErrEmptyConversation = NewDomainError(ErrCodeInvalidInput, "messages are required")
	ErrInvalidRole       = NewDomainError(ErrCodeInvalidInput, "role must be user or assistant")
	ErrInvalidContent    = NewDomainError(ErrCodeInvalidInput, "message content must be a string")
	ErrEmptyMessage      = NewDomainError(ErrCodeInvalidInput, "last message is empty")
	ErrMissingTitle      = NewDomainError(ErrCodeInvalidInput, "title is required")
	ErrMissingContent    = NewDomainError(ErrCodeInvalidInput, "content is required")
	ErrContentTooShort   = NewDomainError(ErrCodeContentTooShort, "content is too short")
	ErrChunkingFailed    = NewDomainError(ErrCodeChunkingFailed, "document produced no chunks")
	ErrInvalidSessionID  = NewDomainError(ErrCodeValidation, "invalid session id")
)

// Authorization errors
var (
	ErrInvalidAdminToken = NewDomainError(ErrCodeUnauthorized, "invalid admin token")
)

// Infrastructure errors
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeEmbedding, "embedding generation failed")
	ErrStoreWrite       = NewDomainError(ErrCodeStoreWrite, "knowledge store write failed")
	ErrStoreRead        = NewDomainError(ErrCodeStoreRead, "knowledge store read failed")
	ErrRetrievalFailed  = NewDomainError(ErrCodeKnowledgeBase, "knowledge base not reachable")
	ErrGenerationFailed = NewDomainError(ErrCodeGeneration, "answer generation failed")
)
