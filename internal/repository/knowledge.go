package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// KnowledgeRepository stores knowledge chunks and runs similarity searches.
type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

// InsertChunk writes one chunk and fills in the store-assigned ID and CreatedAt.
func (r *KnowledgeRepository) InsertChunk(ctx context.Context, c *domain.KnowledgeChunk) error {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO knowledge_base (title, content, embedding, metadata)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		c.Title, c.Content, pgvector.NewVector(c.Embedding), metadata,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return domain.ErrStoreWrite.Wrap(err)
	}
	return nil
}

// SimilaritySearch returns chunks whose cosine similarity to embedding is at
// least threshold, most similar first, at most limit rows.
func (r *KnowledgeRepository) SimilaritySearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]domain.RetrievedMatch, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, content, metadata, similarity
		 FROM match_knowledge($1, $2, $3)`,
		pgvector.NewVector(embedding), threshold, limit,
	)
	if err != nil {
		return nil, domain.ErrStoreRead.Wrap(err)
	}
	defer rows.Close()

	matches := make([]domain.RetrievedMatch, 0, limit)
	for rows.Next() {
		var m domain.RetrievedMatch
		if err := rows.Scan(&m.ID, &m.Title, &m.Content, &m.Metadata, &m.Similarity); err != nil {
			return nil, domain.ErrStoreRead.Wrap(err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStoreRead.Wrap(err)
	}
	return matches, nil
}

// Count returns the number of stored chunks.
func (r *KnowledgeRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_base`).Scan(&n); err != nil {
		return 0, domain.ErrStoreRead.Wrap(err)
	}
	return n, nil
}

// HasMatchFunction reports whether the similarity search function is installed.
func (r *KnowledgeRepository) HasMatchFunction(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT to_regproc('match_knowledge') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return false, domain.ErrStoreRead.Wrap(err)
	}
	return exists, nil
}

// SampleEmbeddingDimensions returns the width of one stored embedding, or 0
// when the table is empty.
func (r *KnowledgeRepository) SampleEmbeddingDimensions(ctx context.Context) (int, error) {
	var dims int
	err := r.db.QueryRow(ctx, `SELECT vector_dims(embedding) FROM knowledge_base LIMIT 1`).Scan(&dims)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, domain.ErrStoreRead.Wrap(err)
	}
	return dims, nil
}

// CountByOriginalTitle returns how many chunks were stored for a source document.
func (r *KnowledgeRepository) CountByOriginalTitle(ctx context.Context, title string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_base WHERE metadata->>'originalTitle' = $1`,
		title,
	).Scan(&n)
	if err != nil {
		return 0, domain.ErrStoreRead.Wrap(err)
	}
	return n, nil
}
