package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"user", RoleUser, true},
		{"assistant", RoleAssistant, true},
		{"system", "", false},
		{"", "", false},
		{"User", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateConversation(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		wantErr  error
	}{
		{"empty", nil, ErrEmptyConversation},
		{"bad role", []Message{{Role: "system", Content: "x"}}, ErrInvalidRole},
		{"blank last", []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleUser, Content: "  "}}, ErrEmptyMessage},
		{"valid", []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}, {Role: RoleUser, Content: "what is RAG?"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConversation(tt.messages)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLastContent(t *testing.T) {
	assert.Equal(t, "", LastContent(nil))
	assert.Equal(t, "b", LastContent([]Message{{Role: RoleUser, Content: "a"}, {Role: RoleUser, Content: "b"}}))
}
