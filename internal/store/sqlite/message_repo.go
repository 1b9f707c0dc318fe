package sqlite

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
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (match_id, sender_id, content, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.MatchID, m.SenderID, m.Content, m.Type, now, now)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("message last insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = ?
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
		WHERE match_id = ?
		  AND (? = 0 OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`, matchID, cursor, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return scanMessages(rows)
}

func (r *MessageRepo) LatestForMatch(ctx context.Context, matchID int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE match_id = ?
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
		UPDATE messages SET is_read = TRUE, read_at = ?, updated_at = ?
		WHERE id = ? AND is_read = FALSE
	`, readAt, readAt, id)
	return err
}

func (r *MessageRepo) MarkAllRead(ctx context.Context, matchID, readerID int64, readAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE, read_at = ?, updated_at = ?
		WHERE match_id = ? AND sender_id != ? AND is_read = FALSE
	`, readAt, readAt, matchID, readerID)
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
