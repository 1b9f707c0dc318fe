package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

const notificationColumns = `id, user_id, type, payload, is_read, read_at, created_at`

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, n.UserID, n.Type, string(n.Payload), now)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("notification last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	return nil
}

func (r *NotificationRepo) GetForUser(ctx context.Context, id, userID int64) (*domain.Notification, error) {
	n := &domain.Notification{}
	var payload string
	err := r.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE id = ? AND user_id = ?
	`, id, userID).Scan(&n.ID, &n.UserID, &n.Type, &payload, &n.IsRead, &n.ReadAt, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	n.Payload = []byte(payload)
	return n, nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, f domain.NotificationListFilter) ([]*domain.Notification, error) {
	unread := 0
	if f.UnreadOnly {
		unread = 1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ?
		  AND (? = 0 OR is_read = FALSE)
		  AND (? = 0 OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`, userID, unread, f.Cursor, f.Cursor, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var res []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		var payload string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &payload, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Payload = []byte(payload)
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = ?
		WHERE id = ? AND is_read = FALSE
	`, readAt, id)
	return err
}
