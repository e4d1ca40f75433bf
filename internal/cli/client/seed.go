package client

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type seedResponse struct {
	Succeeded int      `json:"succeeded"`
	Total     int      `json:"total"`
	Chunks    int      `json:"chunksCreated"`
	Failures  []string `json:"failures,omitempty"`
	Summary   string   `json:"summary"`
}

// SeedCmd creates the seed command
func SeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the server's built-in sample documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(api *APIClient, outputJSON bool) error {
				return runSeed(cmd.Context(), api, cmd.OutOrStdout(), outputJSON)
			})
		},
	}
}

func runSeed(ctx context.Context, api *APIClient, out io.Writer, outputJSON bool) error {
	var resp seedResponse
	_, err := api.Post(ctxOrBackground(ctx), "/seed", struct{}{}, &resp)
	if err != nil {
		if resp.Summary != "" {
			fmt.Fprint(out, resp.Summary)
		}
		return fmt.Errorf("seed failed: %w", err)
	}

	if outputJSON {
		return printJSON(out, resp)
	}

	fmt.Fprint(out, resp.Summary)
	return nil
}
