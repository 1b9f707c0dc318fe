package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
)

type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

var _ domain.ScheduleRepository = (*ScheduleRepo)(nil)

const scheduleColumns = `id, match_id, proposer_id, receiver_id, start_time, end_time, note, status, message_id, created_at, updated_at`

func (r *ScheduleRepo) CreateBatch(ctx context.Context, msg *domain.Message, slots []*domain.Schedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule batch tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (match_id, sender_id, content, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.MatchID, msg.SenderID, msg.Content, msg.Type, now, now)
	if err != nil {
		return fmt.Errorf("insert schedule message: %w", err)
	}
	msgID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("schedule message last insert id: %w", err)
	}
	msg.ID = msgID
	msg.CreatedAt = now
	msg.UpdatedAt = now

	for _, s := range slots {
		s.MessageID = msg.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO schedules
				(match_id, proposer_id, receiver_id, start_time, end_time, note, status, message_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, s.MatchID, s.ProposerID, s.ReceiverID, s.StartTime, s.EndTime, s.Note, s.Status, s.MessageID, now, now)
		if err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("schedule last insert id: %w", err)
		}
		s.ID = id
		s.CreatedAt = now
		s.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule batch tx: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	s := &domain.Schedule{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE id = ?
	`, id).Scan(
		&s.ID, &s.MatchID, &s.ProposerID, &s.ReceiverID, &s.StartTime, &s.EndTime,
		&s.Note, &s.Status, &s.MessageID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return s, nil
}

func (r *ScheduleRepo) ListByMessage(ctx context.Context, messageID int64) ([]*domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE message_id = ?
		ORDER BY start_time ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list schedules by message: %w", err)
	}
	return scanSchedules(rows)
}

// Confirm is the exclusive-accept transaction: the winning slot advances
// to CONFIRMED, every sibling is cancelled by one statement, and the
// carrier message advances to SCHEDULE_CONFIRMED. The guarded first
// update makes a concurrent second accept lose cleanly.
func (r *ScheduleRepo) Confirm(ctx context.Context, scheduleID, messageID int64, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE schedules SET status = 'CONFIRMED', updated_at = ?
		WHERE id = ? AND status = 'PROPOSED'
	`, now, scheduleID)
	if err != nil {
		return fmt.Errorf("confirm schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrScheduleAlreadyHandled
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE schedules SET status = 'CANCELLED', updated_at = ?
		WHERE message_id = ? AND id != ? AND status != 'CANCELLED'
	`, now, messageID, scheduleID); err != nil {
		return fmt.Errorf("cancel siblings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET type = ?, updated_at = ? WHERE id = ?
	`, domain.MessageScheduleConfirmed, now, messageID); err != nil {
		return fmt.Errorf("update schedule message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit confirm tx: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) CancelBatch(ctx context.Context, messageID int64, cancellation *domain.Message, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE schedules SET status = 'CANCELLED', updated_at = ?
		WHERE message_id = ? AND status != 'CANCELLED'
	`, now, messageID); err != nil {
		return fmt.Errorf("cancel schedules: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET type = ?, updated_at = ? WHERE id = ?
	`, domain.MessageScheduleCancelled, now, messageID); err != nil {
		return fmt.Errorf("update schedule message: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (match_id, sender_id, content, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cancellation.MatchID, cancellation.SenderID, cancellation.Content, cancellation.Type, now, now)
	if err != nil {
		return fmt.Errorf("insert cancellation message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("cancellation last insert id: %w", err)
	}
	cancellation.ID = id
	cancellation.CreatedAt = now
	cancellation.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) ListConfirmedForUser(ctx context.Context, userID int64) ([]*domain.ScheduleWithCounterpart, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.match_id, s.proposer_id, s.receiver_id, s.start_time, s.end_time,
		       s.note, s.status, s.message_id, s.created_at, s.updated_at,
		       u.id, u.display_name
		FROM schedules s
		JOIN users u ON u.id = CASE WHEN s.proposer_id = ? THEN s.receiver_id ELSE s.proposer_id END
		WHERE s.status = 'CONFIRMED'
		  AND (s.proposer_id = ? OR s.receiver_id = ?)
		ORDER BY s.start_time ASC
	`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list confirmed schedules: %w", err)
	}
	defer rows.Close()

	var res []*domain.ScheduleWithCounterpart
	for rows.Next() {
		s := &domain.ScheduleWithCounterpart{}
		if err := rows.Scan(
			&s.ID, &s.MatchID, &s.ProposerID, &s.ReceiverID, &s.StartTime, &s.EndTime,
			&s.Note, &s.Status, &s.MessageID, &s.CreatedAt, &s.UpdatedAt,
			&s.Counterpart.ID, &s.Counterpart.DisplayName,
		); err != nil {
			return nil, fmt.Errorf("scan confirmed schedule: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func scanSchedules(rows *sql.Rows) ([]*domain.Schedule, error) {
	defer rows.Close()
	var res []*domain.Schedule
	for rows.Next() {
		s := &domain.Schedule{}
		if err := rows.Scan(
			&s.ID, &s.MatchID, &s.ProposerID, &s.ReceiverID, &s.StartTime, &s.EndTime,
			&s.Note, &s.Status, &s.MessageID, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
