//go:build integration

package openai

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	ctx := context.Background()
	text := "This is a test document for generating embeddings."

	embedding, err := client.GenerateEmbedding(ctx, text)

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
}

func TestIntegration_StreamChat_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClientWithConfig(Config{APIKey: apiKey, ChatModel: openai.GPT4oMini})
	stream, err := client.StreamChat(context.Background(), ChatRequest{
		SystemPrompt: "Reply with the single word: pong",
		Messages:     []ChatMessage{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
		MaxTokens:    5,
	})
	require.NoError(t, err)
	defer stream.Close()

	var sb strings.Builder
	for {
		tok, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(tok)
	}
	assert.NotEmpty(t, sb.String())
}
