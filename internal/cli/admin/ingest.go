package admin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloo-solutions/ragchat/internal/docsource"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/storage"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	var (
		files    []string
		title    string
		s3Prefix string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the knowledge base",
		Long: `Ingests local files (.txt, .md, .pdf) or every supported object under an S3 prefix.

Examples:
  ragchatd ingest --file docs/rag.md
  ragchatd ingest --file guide.pdf --title "Deployment guide"
  ragchatd ingest --s3-prefix handbook/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(files) == 0 && !cmd.Flags().Changed("s3-prefix") {
				return errors.New("one of --file or --s3-prefix is required")
			}
			if len(files) > 0 && cmd.Flags().Changed("s3-prefix") {
				return errors.New("--file and --s3-prefix are mutually exclusive")
			}
			if title != "" && len(files) != 1 {
				return errors.New("--title requires exactly one --file")
			}
			return runIngest(cmd, files, title, s3Prefix)
		},
	}

	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "File to ingest (repeatable)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to the first heading or file name)")
	cmd.Flags().StringVar(&s3Prefix, "s3-prefix", "", "Ingest every supported object under this bucket prefix")
	cmd.Flags().Bool("no-migrate", false, "Skip database migrations before ingesting")

	return cmd
}

func runIngest(cmd *cobra.Command, files []string, title, s3Prefix string) error {
	ctx := context.Background()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newApp(ctx, appOptions{migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.close()

	var docs []domain.Document
	if len(files) > 0 {
		for _, path := range files {
			doc, err := docsource.ReadFile(path, title)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
	} else {
		docs, err = loadS3Documents(ctx, a, s3Prefix, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	warnDuplicates(ctx, a, docs, cmd.ErrOrStderr())

	out := cmd.OutOrStdout()
	if len(docs) == 1 {
		result, err := a.ingest.Ingest(ctx, docs[0])
		if err != nil {
			return fmt.Errorf("%s: %w", result.Message, err)
		}
		fmt.Fprintln(out, result.Message)
		return nil
	}

	result := a.ingest.IngestBatch(ctx, docs)
	fmt.Fprintln(out, result.Message)
	if !result.Success {
		return fmt.Errorf("some documents failed: %s", result.Error)
	}
	return nil
}

// warnDuplicates reports documents whose title is already stored. Ingesting
// them again adds a second copy of every chunk.
func warnDuplicates(ctx context.Context, a *app, docs []domain.Document, warn io.Writer) {
	for _, doc := range docs {
		n, err := a.knowledge.CountByOriginalTitle(ctx, doc.Title)
		if err != nil || n == 0 {
			continue
		}
		fmt.Fprintf(warn, "warning: %q already has %d stored chunks\n", doc.Title, n)
	}
}

func loadS3Documents(ctx context.Context, a *app, prefix string, warn io.Writer) ([]domain.Document, error) {
	cfg := a.cfg
	if !cfg.HasS3() {
		return nil, errors.New("RAGCHAT_S3_BUCKET is required for --s3-prefix")
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    cfg.S3Endpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	docs, skipped, err := storage.NewS3Source(client, a.logger).Documents(ctx, prefix)
	for _, s := range skipped {
		fmt.Fprintf(warn, "skipped %s: %s\n", s.Key, s.Reason)
	}
	if err != nil {
		return nil, err
	}
	return docs, nil
}
