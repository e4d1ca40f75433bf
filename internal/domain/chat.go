package domain

import "time"

// SessionPreviewLength is the number of characters kept in a session's last message preview.
const SessionPreviewLength = 50

// ChatMessage is a persisted chat history row.
type ChatMessage struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Role      Role             `json:"role"`
	Message   string           `json:"message"`
	Sources   []RetrievedMatch `json:"sources,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ChatSession summarises all messages that share a session id.
type ChatSession struct {
	SessionID    string    `json:"session_id"`
	LastMessage  string    `json:"last_message"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// TruncatePreview shortens s to SessionPreviewLength characters, adding "..." when cut.
func TruncatePreview(s string) string {
	r := []rune(s)
	if len(r) <= SessionPreviewLength {
		return s
	}
	return string(r[:SessionPreviewLength]) + "..."
}

// ChatStage names the step a chat request is in.
type ChatStage string

const (
	StageReceived   ChatStage = "received"
	StageValidated  ChatStage = "validated"
	StageRetrieving ChatStage = "retrieving"
	StageAugmenting ChatStage = "augmenting"
	StageGenerating ChatStage = "generating"
	StageStreaming  ChatStage = "streaming"
	StageCompleted  ChatStage = "completed"
	StageErrored    ChatStage = "errored"
)
