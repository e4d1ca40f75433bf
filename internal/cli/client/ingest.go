package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/docsource"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/spf13/cobra"
)

type ingestRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ingestBatchRequest struct {
	Documents []ingestRequest `json:"documents"`
}

// IngestCmd creates the ingest command
func IngestCmd() *cobra.Command {
	var (
		files []string
		title string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Upload documents to the knowledge base",
		Long: `Reads local .txt, .md or .pdf files and sends their text to the server.
Requires the admin token when the server has one configured.

Examples:
  ragchat ingest --file notes.md
  ragchat ingest --file guide.pdf --title "Deployment guide"
  ragchat ingest --file a.md --file b.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(files) == 0 {
				return fmt.Errorf("--file is required")
			}
			if title != "" && len(files) != 1 {
				return fmt.Errorf("--title requires exactly one --file")
			}
			return withClient(cmd, func(api *APIClient, outputJSON bool) error {
				return runIngest(cmd.Context(), api, cmd.OutOrStdout(), files, title, outputJSON)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "File to ingest (repeatable)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to the first heading or file name)")

	return cmd
}

func runIngest(ctx context.Context, api *APIClient, out io.Writer, files []string, title string, outputJSON bool) error {
	docs := make([]ingestRequest, 0, len(files))
	for _, path := range files {
		doc, err := docsource.ReadFile(path, title)
		if err != nil {
			return err
		}
		docs = append(docs, ingestRequest{Title: doc.Title, Content: doc.Content, Metadata: doc.Metadata})
	}

	var (
		result domain.IngestResult
		status int
		err    error
	)
	if len(docs) == 1 {
		status, err = api.Post(ctxOrBackground(ctx), "/ingest", docs[0], &result)
	} else {
		status, err = api.Post(ctxOrBackground(ctx), "/ingest/batch", ingestBatchRequest{Documents: docs}, &result)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if outputJSON {
		return printJSON(out, result)
	}

	fmt.Fprintln(out, result.Message)
	if status == http.StatusMultiStatus {
		return fmt.Errorf("some documents failed: %s", result.Error)
	}
	return nil
}
