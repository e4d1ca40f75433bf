package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/ragchat/internal/cli"
	"github.com/cloo-solutions/ragchat/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragchat",
		Short: "Ragchat CLI - ask questions against your knowledge base",
		Long: `Ragchat CLI talks to a running ragchatd server.

Environment variables:
  RAGCHAT_API_URL             API base URL (default: http://localhost:8080)
  RAGCHAT_ADMIN_TOKEN         Admin token for ingest and seed (optional)
  RAGCHAT_MAX_MESSAGE_LENGTH  Longest accepted question (default: 500)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("admin-token", "", "Admin token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.SessionsCmd())
	rootCmd.AddCommand(client.SeedCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
