package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeInvalidInput, "bad")
	assert.Equal(t, "[INVALID_INPUT] bad", err.Error())

	withCause := NewDomainErrorWithCause(ErrCodeStoreWrite, "insert failed", errors.New("conn reset"))
	assert.Equal(t, "[STORE_WRITE_FAILED] insert failed: conn reset", withCause.Error())
}

func TestDomainError_WrapKeepsIdentity(t *testing.T) {
	cause := errors.New("timeout")
	wrapped := ErrRetrievalFailed.Wrap(cause)

	assert.True(t, errors.Is(wrapped, ErrRetrievalFailed))
	assert.True(t, errors.Is(wrapped, cause))
	assert.False(t, errors.Is(wrapped, ErrGenerationFailed))

	outer := fmt.Errorf("chat: %w", wrapped)
	var de *DomainError
	assert.True(t, errors.As(outer, &de))
	assert.Equal(t, ErrCodeKnowledgeBase, de.Code)
}

func TestDomainError_IsDistinguishesSameCode(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidRole, ErrEmptyConversation))
	assert.True(t, errors.Is(ErrInvalidRole, ErrInvalidRole))
}
