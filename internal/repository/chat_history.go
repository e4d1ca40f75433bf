package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatHistoryRepository persists chat messages grouped by session.
type ChatHistoryRepository struct {
	db dbtx
}

func NewChatHistoryRepository(pool *pgxpool.Pool) *ChatHistoryRepository {
	return &ChatHistoryRepository{db: pool}
}

// InsertMessage appends a message and fills in its ID and CreatedAt.
// Sources are stored only when present.
func (r *ChatHistoryRepository) InsertMessage(ctx context.Context, m *domain.ChatMessage) error {
	var sources []byte
	if len(m.Sources) > 0 {
		encoded, err := json.Marshal(m.Sources)
		if err != nil {
			return domain.ErrStoreWrite.Wrap(fmt.Errorf("encode sources: %w", err))
		}
		sources = encoded
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO chat_history (session_id, role, message, sources)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.SessionID, string(m.Role), m.Message, sources,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return domain.ErrStoreWrite.Wrap(err)
	}
	return nil
}

// ListMessages returns a session's messages in chronological order.
func (r *ChatHistoryRepository) ListMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, message, sources, created_at
		 FROM chat_history
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, domain.ErrStoreRead.Wrap(err)
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var m domain.ChatMessage
		var role string
		var sources []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Message, &sources, &m.CreatedAt); err != nil {
			return nil, domain.ErrStoreRead.Wrap(err)
		}
		m.Role = domain.Role(role)
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, domain.ErrStoreRead.Wrap(fmt.Errorf("decode sources: %w", err))
			}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStoreRead.Wrap(err)
	}
	return messages, nil
}

// ListSessions returns one row per session, most recently active first.
func (r *ChatHistoryRepository) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	rows, err := r.db.Query(ctx,
		`SELECT session_id, message, created_at, message_count
		 FROM (
			SELECT session_id, message, created_at,
				ROW_NUMBER() OVER (PARTITION BY session_id ORDER BY created_at DESC, id DESC) AS rn,
				COUNT(*) OVER (PARTITION BY session_id) AS message_count
			FROM chat_history
		 ) latest
		 WHERE rn = 1
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, domain.ErrStoreRead.Wrap(err)
	}
	defer rows.Close()

	sessions := make([]domain.ChatSession, 0)
	for rows.Next() {
		var s domain.ChatSession
		var last string
		if err := rows.Scan(&s.SessionID, &last, &s.CreatedAt, &s.MessageCount); err != nil {
			return nil, domain.ErrStoreRead.Wrap(err)
		}
		s.LastMessage = domain.TruncatePreview(last)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStoreRead.Wrap(err)
	}
	return sessions, nil
}

// DeleteSession removes every message of a session and returns how many rows went away.
// Deleting an unknown session is not an error.
func (r *ChatHistoryRepository) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM chat_history WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, domain.ErrStoreWrite.Wrap(err)
	}
	return tag.RowsAffected(), nil
}
