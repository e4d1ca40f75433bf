package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ChatMessage is one turn passed to the generator
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest describes a streaming generation call
type ChatRequest struct {
	SystemPrompt string
	Messages     []ChatMessage
	Temperature  float32
	MaxTokens    int
}

// TokenStream yields generated text fragments in order.
// Recv returns io.EOF once the generator has finished.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// StreamChat starts a streaming completion with the system prompt placed
// before the conversation. Cancelling ctx aborts the provider stream.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (TokenStream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemPrompt,
	})
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	stream, err := c.chat.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start chat completion: %w", err)
	}

	c.logger.Debug("chat stream opened",
		zap.String("model", c.chatModel),
		zap.Int("messages", len(messages)),
	)

	return &tokenStream{stream: stream}, nil
}

type tokenStream struct {
	stream ChatStream
}

// Recv skips chunks that carry no content, such as the role preamble and finish marker.
func (s *tokenStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *tokenStream) Close() error {
	return s.stream.Close()
}
