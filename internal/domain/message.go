package domain

import "strings"

// Role identifies the author of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole returns the Role for s, or false when s is not a conversation role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), true
	}
	return "", false
}

// Message is one validated turn of a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ValidateConversation checks that a conversation can be answered:
// it is non-empty, every role is known and the last message has text.
func ValidateConversation(messages []Message) error {
	if len(messages) == 0 {
		return ErrEmptyConversation
	}
	for _, m := range messages {
		if _, ok := ParseRole(string(m.Role)); !ok {
			return ErrInvalidRole
		}
	}
	if strings.TrimSpace(messages[len(messages)-1].Content) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// LastContent returns the content of the final message, or "" for an empty conversation.
func LastContent(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}
