package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

const (
	knowledgeBaseHint = "Check the database configuration, the embedding provider credentials and that the knowledge base has been seeded."
	generationHint    = "The answer could not be generated. Check the chat model configuration and try again."
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation,
		domain.ErrCodeInvalidInput,
		domain.ErrCodeContentTooShort,
		domain.ErrCodeChunkingFailed:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody builds the response body for err. Infrastructure failures get a
// fixed title and an operator hint so "knowledge base unreachable" can be
// told apart from generation and generic internal failures.
func ErrorBody(err error) ErrorResponse {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return ErrorResponse{Error: "Internal server error", Message: err.Error(), Code: domain.ErrCodeInternalError}
	}

	switch {
	case errors.Is(err, domain.ErrRetrievalFailed):
		return ErrorResponse{Error: "Knowledge base not reachable", Message: knowledgeBaseHint, Code: domain.ErrCodeKnowledgeBase}
	case domainErr.Code == domain.ErrCodeGeneration:
		return ErrorResponse{Error: "Generation failed", Message: generationHint, Code: domainErr.Code}
	case DomainErrorToHTTP(err) >= http.StatusInternalServerError:
		return ErrorResponse{Error: "Internal server error", Message: domainErr.Error(), Code: domainErr.Code}
	default:
		return ErrorResponse{Error: domainErr.Message, Code: domainErr.Code}
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	JSON(w, DomainErrorToHTTP(err), ErrorBody(err))
}
