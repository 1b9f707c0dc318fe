package postgres

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
	return r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, type, payload, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, n.UserID, n.Type, []byte(n.Payload)).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepo) GetForUser(ctx context.Context, id, userID int64) (*domain.Notification, error) {
	n := &domain.Notification{}
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&n.ID, &n.UserID, &n.Type, &payload, &n.IsRead, &n.ReadAt, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	n.Payload = payload
	return n, nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, f domain.NotificationListFilter) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1
		  AND ($2::boolean = FALSE OR is_read = FALSE)
		  AND ($3::bigint = 0 OR id < $3::bigint)
		ORDER BY id DESC
		LIMIT $4
	`, userID, f.UnreadOnly, f.Cursor, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var res []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &payload, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Payload = payload
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $2
		WHERE id = $1 AND is_read = FALSE
	`, id, readAt)
	return err
}
