package sqlite

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

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO matches (requester_id, receiver_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.RequesterID, m.ReceiverID, m.Status, now, now)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("match last insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now

	if seed != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (match_id, sender_id, content, type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, m.RequesterID, *seed, domain.MessageText, now, now); err != nil {
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
		SELECT `+matchColumns+` FROM matches WHERE id = ?
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
		WHERE (requester_id = ? AND receiver_id = ?)
		   OR (requester_id = ? AND receiver_id = ?)
	`, userA, userB, userB, userA).Scan(
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
		UPDATE matches SET status = ?, `+col+` = ?, updated_at = ?
		WHERE id = ? AND status = 'PENDING'
	`, status, resolvedAt, resolvedAt, id)
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
		WHERE (requester_id = ? OR receiver_id = ?)
		  AND (? = '' OR status = ?)
		  AND (? = 0 OR (updated_at, id) < (SELECT updated_at, id FROM matches WHERE id = ?))
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`, userID, userID, status, status, f.Cursor, f.Cursor, f.Limit)
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
