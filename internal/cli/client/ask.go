package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// AskSettings holds the client-side limits read from the environment.
type AskSettings struct {
	MaxMessageLength int `envconfig:"MAX_MESSAGE_LENGTH" default:"500"`
}

// LoadAskSettings reads RAGCHAT_MAX_MESSAGE_LENGTH.
func LoadAskSettings() (AskSettings, error) {
	var s AskSettings
	if err := envconfig.Process("RAGCHAT", &s); err != nil {
		return s, fmt.Errorf("failed to process config: %w", err)
	}
	return s, nil
}

type chatRequest struct {
	SessionID string           `json:"session_id,omitempty"`
	Messages  []domain.Message `json:"messages"`
}

type tokenEvent struct {
	Content string `json:"content"`
}

type doneEvent struct {
	SessionID string                  `json:"session_id"`
	Sources   int                     `json:"sources"`
	Query     string                  `json:"query"`
	Matches   []domain.RetrievedMatch `json:"matches"`
}

type errorEvent struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type debugAnswer struct {
	Debug     bool                    `json:"debug"`
	SessionID string                  `json:"session_id"`
	Query     string                  `json:"query"`
	Sources   []domain.RetrievedMatch `json:"sources"`
	Message   string                  `json:"message"`
}

// AskResult summarises one answered question.
type AskResult struct {
	SessionID string                  `json:"session_id"`
	Answer    string                  `json:"answer"`
	Query     string                  `json:"query"`
	Sources   []domain.RetrievedMatch `json:"sources"`
	Debug     string                  `json:"debug,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the knowledge base",
		Long: `Streams an answer grounded in the knowledge base.

Pass --session to continue an earlier conversation; its history is loaded
from the server and sent along with the new question.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := LoadAskSettings()
			if err != nil {
				return err
			}
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			question := strings.Join(args, " ")
			if outputJSON {
				res, err := runAsk(cmd.Context(), api, io.Discard, settings, sessionID, question)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}

			res, err := runAsk(cmd.Context(), api, cmd.OutOrStdout(), settings, sessionID, question)
			if err != nil {
				return err
			}
			printSources(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Continue an existing session")

	return cmd
}

// ValidateQuestion rejects empty questions and those longer than limit characters.
func ValidateQuestion(question string, limit int) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question cannot be empty")
	}
	if n := utf8.RuneCountInString(question); limit > 0 && n > limit {
		return "", fmt.Errorf("question too long (%d/%d characters)", n, limit)
	}
	return question, nil
}

// runAsk streams the answer tokens to out as they arrive.
func runAsk(ctx context.Context, api *APIClient, out io.Writer, settings AskSettings, sessionID, question string) (*AskResult, error) {
	question, err := ValidateQuestion(question, settings.MaxMessageLength)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var messages []domain.Message
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		history, err := fetchMessages(ctx, api, sessionID)
		if err != nil {
			return nil, err
		}
		for _, m := range history {
			messages = append(messages, domain.Message{Role: m.Role, Content: m.Message})
		}
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: question})

	res := &AskResult{SessionID: sessionID}
	var answer strings.Builder
	completed := false

	resp, err := api.Stream(ctx, "/chat", chatRequest{SessionID: sessionID, Messages: messages}, func(event string, data []byte) error {
		switch event {
		case "token":
			var tok tokenEvent
			if err := json.Unmarshal(data, &tok); err != nil {
				return fmt.Errorf("malformed token event: %w", err)
			}
			answer.WriteString(tok.Content)
			_, err := io.WriteString(out, tok.Content)
			return err
		case "done":
			var done doneEvent
			if err := json.Unmarshal(data, &done); err != nil {
				return fmt.Errorf("malformed done event: %w", err)
			}
			res.SessionID = done.SessionID
			res.Query = done.Query
			res.Sources = done.Matches
			completed = true
		case "error":
			var e errorEvent
			_ = json.Unmarshal(data, &e)
			if e.Message != "" {
				return fmt.Errorf("%s: %s", e.Error, e.Message)
			}
			return fmt.Errorf("%s", e.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Body != nil {
		var dbg debugAnswer
		if err := json.Unmarshal(resp.Body, &dbg); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		res.SessionID = dbg.SessionID
		res.Query = dbg.Query
		res.Sources = dbg.Sources
		res.Debug = dbg.Message
		fmt.Fprintln(out, dbg.Message)
		return res, nil
	}

	if !completed {
		return nil, errors.New("stream ended before the answer completed")
	}
	if res.SessionID == "" {
		res.SessionID = resp.Header.Get("X-RAG-Session")
	}
	res.Answer = answer.String()
	fmt.Fprintln(out)
	return res, nil
}

func fetchMessages(ctx context.Context, api *APIClient, sessionID string) ([]domain.ChatMessage, error) {
	resp, err := api.Get(ctx, "/sessions/"+url.PathEscape(sessionID)+"/messages")
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var list struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return list.Messages, nil
}

func printSources(out io.Writer, res *AskResult) {
	fmt.Fprintln(out)
	if len(res.Sources) == 0 {
		fmt.Fprintln(out, "No sources")
	} else {
		fmt.Fprintf(out, "Sources (%d):\n", len(res.Sources))
		for i, m := range res.Sources {
			fmt.Fprintf(out, "  [%d] %s (%.1f%%)\n", i+1, m.Title, m.Similarity*100)
		}
	}
	fmt.Fprintf(out, "Session: %s\n", res.SessionID)
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
