package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, match_id, sender_id, content, type, is_read, read_at, created_at, updated_at`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO messages (match_id, sender_id, content, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, m.MatchID, m.SenderID, m.Content, m.Type).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = $1
	`, id).Scan(
		&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.Type,
		&m.IsRead, &m.ReadAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListForMatch(ctx context.Context, matchID, cursor int64, limit int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE match_id = $1
		  AND ($2::bigint = 0 OR id < $2::bigint)
		ORDER BY id DESC
		LIMIT $3
	`, matchID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return scanMessages(rows)
}

func (r *MessageRepo) LatestForMatch(ctx context.Context, matchID int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE match_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, matchID).Scan(
		&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.Type,
		&m.IsRead, &m.ReadAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $2, updated_at = $2
		WHERE id = $1 AND is_read = FALSE
	`, id, readAt)
	return err
}

func (r *MessageRepo) MarkAllRead(ctx context.Context, matchID, readerID int64, readAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = $3, updated_at = $3
		WHERE match_id = $1 AND sender_id != $2 AND is_read = FALSE
	`, matchID, readerID, readAt)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID, &m.MatchID, &m.SenderID, &m.Content, &m.Type,
			&m.IsRead, &m.ReadAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
