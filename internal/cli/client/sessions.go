package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/spf13/cobra"
)

// SessionsCmd creates the sessions parent command
func SessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Browse and delete chat sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(api *APIClient, outputJSON bool) error {
				return runSessionsList(cmd.Context(), api, cmd.OutOrStdout(), outputJSON)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the messages of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(api *APIClient, outputJSON bool) error {
				return runSessionsShow(cmd.Context(), api, cmd.OutOrStdout(), args[0], outputJSON)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete every message of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(api *APIClient, outputJSON bool) error {
				return runSessionsDelete(cmd.Context(), api, cmd.OutOrStdout(), args[0], outputJSON)
			})
		},
	})

	return cmd
}

func withClient(cmd *cobra.Command, fn func(api *APIClient, outputJSON bool) error) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}
	outputJSON, _ := cmd.Flags().GetBool("output")
	return fn(api, outputJSON)
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func runSessionsList(ctx context.Context, api *APIClient, out io.Writer, outputJSON bool) error {
	resp, err := api.Get(ctxOrBackground(ctx), "/sessions")
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	var list struct {
		Sessions []domain.ChatSession `json:"sessions"`
	}
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse sessions: %w", err)
	}

	if outputJSON {
		return printJSON(out, list.Sessions)
	}

	if len(list.Sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}

	for _, s := range list.Sessions {
		fmt.Fprintf(out, "%s  %s  %d messages\n", s.SessionID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.MessageCount)
		if s.LastMessage != "" {
			fmt.Fprintf(out, "    %s\n", s.LastMessage)
		}
	}
	return nil
}

func runSessionsShow(ctx context.Context, api *APIClient, out io.Writer, sessionID string, outputJSON bool) error {
	messages, err := fetchMessages(ctxOrBackground(ctx), api, sessionID)
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(out, messages)
	}

	if len(messages) == 0 {
		fmt.Fprintf(out, "Session %s has no messages.\n", sessionID)
		return nil
	}

	for i, m := range messages {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "[%s] %s:\n%s\n", m.CreatedAt.Local().Format("15:04:05"), m.Role, m.Message)
		for j, src := range m.Sources {
			fmt.Fprintf(out, "  [%d] %s (%.1f%%)\n", j+1, src.Title, src.Similarity*100)
		}
	}
	return nil
}

func runSessionsDelete(ctx context.Context, api *APIClient, out io.Writer, sessionID string, outputJSON bool) error {
	resp, err := api.Delete(ctxOrBackground(ctx), "/sessions/"+url.PathEscape(sessionID))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if outputJSON {
		fmt.Fprintln(out, string(resp.Data))
		return nil
	}

	fmt.Fprintf(out, "Deleted session %s\n", sessionID)
	return nil
}
