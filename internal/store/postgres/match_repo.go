package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
)

type MatchRepo struct {
	db *sql.DB
}

func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

var _ domain.MatchRepository = (*MatchRepo)(nil)

const matchColumns = `id, requester_id, receiver_id, status, created_at, updated_at, accepted_at, rejected_at`

func (r *MatchRepo) Create(ctx context.Context, m *domain.Match, seed *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create match tx: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO matches (requester_id, receiver_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, m.RequesterID, m.ReceiverID, m.Status).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	if seed != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (match_id, sender_id, content, type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
		`, m.ID, m.RequesterID, *seed, domain.MessageText); err != nil {
			return fmt.Errorf("insert seed message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create match tx: %w", err)
	}
	return nil
}

func (r *MatchRepo) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	m := &domain.Match{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches WHERE id = $1
	`, id).Scan(
		&m.ID, &m.RequesterID, &m.ReceiverID, &m.Status,
		&m.CreatedAt, &m.UpdatedAt, &m.AcceptedAt, &m.RejectedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (r *MatchRepo) FindBetween(ctx context.Context, userA, userB int64) (*domain.Match, error) {
	m := &domain.Match{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE (requester_id = $1 AND receiver_id = $2)
		   OR (requester_id = $2 AND receiver_id = $1)
	`, userA, userB).Scan(
		&m.ID, &m.RequesterID, &m.ReceiverID, &m.Status,
		&m.CreatedAt, &m.UpdatedAt, &m.AcceptedAt, &m.RejectedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match between users: %w", err)
	}
	return m, nil
}

func (r *MatchRepo) Resolve(ctx context.Context, id int64, status domain.MatchStatus, resolvedAt time.Time) error {
	col := "accepted_at"
	if status == domain.MatchRejected {
		col = "rejected_at"
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE matches SET status = $2, `+col+` = $3, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`, id, status, resolvedAt)
	if err != nil {
		return fmt.Errorf("resolve match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve match rows affected: %w", err)
	}
	if affected == 0 {
		// Lost the race against a concurrent accept/reject.
		return domain.ErrMatchAlreadyResolved
	}
	return nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID int64, f domain.MatchListFilter) ([]*domain.Match, error) {
	status := ""
	if f.Status != nil {
		status = string(*f.Status)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE (requester_id = $1 OR receiver_id = $1)
		  AND ($2::text = '' OR status = $2::text)
		  AND ($3::bigint = 0 OR (updated_at, id) < (SELECT updated_at, id FROM matches WHERE id = $3::bigint))
		ORDER BY updated_at DESC, id DESC
		LIMIT $4
	`, userID, status, f.Cursor, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var res []*domain.Match
	for rows.Next() {
		m := &domain.Match{}
		if err := rows.Scan(
			&m.ID, &m.RequesterID, &m.ReceiverID, &m.Status,
			&m.CreatedAt, &m.UpdatedAt, &m.AcceptedAt, &m.RejectedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
