package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/docsource"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"go.uber.org/zap"
)

// ErrNoDocuments is returned when a prefix holds no readable documents.
var ErrNoDocuments = errors.New("no supported documents under prefix")

// SkippedObject is an object that could not be turned into a document
type SkippedObject struct {
	Key    string
	Reason string
}

// S3Source loads ingestible documents from a bucket prefix
type S3Source struct {
	client *S3Client
	logger *zap.Logger
}

// NewS3Source creates a new S3Source instance
func NewS3Source(client *S3Client, logger *zap.Logger) *S3Source {
	return &S3Source{client: client, logger: logger.Named("s3_source")}
}

// Documents reads every supported object under prefix. Objects that cannot be
// read or parsed are reported as skipped; only listing failures are errors.
func (s *S3Source) Documents(ctx context.Context, prefix string) ([]domain.Document, []SkippedObject, error) {
	objects, err := s.client.ListObjects(ctx, prefix)
	if err != nil {
		return nil, nil, err
	}

	var docs []domain.Document
	var skipped []SkippedObject
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if !docsource.Supported(obj.Key) {
			skipped = append(skipped, SkippedObject{Key: obj.Key, Reason: docsource.ErrUnsupportedType.Error()})
			continue
		}

		data, err := s.client.GetObject(ctx, obj.Key)
		if err != nil {
			s.logger.Warn("skipping object", zap.String("key", obj.Key), zap.Error(err))
			skipped = append(skipped, SkippedObject{Key: obj.Key, Reason: err.Error()})
			continue
		}

		doc, err := docsource.FromBytes(obj.Key, data, "", map[string]any{
			domain.MetaSource: fmt.Sprintf("s3://%s/%s", s.client.Bucket(), obj.Key),
		})
		if err != nil {
			s.logger.Warn("skipping object", zap.String("key", obj.Key), zap.Error(err))
			skipped = append(skipped, SkippedObject{Key: obj.Key, Reason: err.Error()})
			continue
		}
		if dir := path.Dir(obj.Key); dir != "." && dir != "/" {
			doc.Metadata[domain.MetaCategory] = path.Base(dir)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, skipped, fmt.Errorf("%s: %w", prefix, ErrNoDocuments)
	}

	s.logger.Info("loaded documents from s3",
		zap.String("prefix", prefix),
		zap.Int("documents", len(docs)),
		zap.Int("skipped", len(skipped)),
	)
	return docs, skipped, nil
}
