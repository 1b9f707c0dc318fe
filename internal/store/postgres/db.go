package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the langmatch schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users are owned by the external profile subsystem; the core only
		// needs identity and display name.
		`CREATE TABLE IF NOT EXISTS users (
			id           BIGSERIAL    PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			email        VARCHAR(100) UNIQUE,
			created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Matches
		`CREATE TABLE IF NOT EXISTS matches (
			id           BIGSERIAL   PRIMARY KEY,
			requester_id BIGINT      NOT NULL REFERENCES users(id),
			receiver_id  BIGINT      NOT NULL REFERENCES users(id),
			status       VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			accepted_at  TIMESTAMPTZ,
			rejected_at  TIMESTAMPTZ,
			CHECK (requester_id <> receiver_id)
		)`,

		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id         BIGSERIAL   PRIMARY KEY,
			match_id   BIGINT      NOT NULL REFERENCES matches(id),
			sender_id  BIGINT      NOT NULL REFERENCES users(id),
			content    TEXT        NOT NULL DEFAULT '',
			type       VARCHAR(30) NOT NULL DEFAULT 'TEXT',
			is_read    BOOLEAN     NOT NULL DEFAULT FALSE,
			read_at    TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Schedules: one row per candidate slot, siblings share message_id
		`CREATE TABLE IF NOT EXISTS schedules (
			id          BIGSERIAL   PRIMARY KEY,
			match_id    BIGINT      NOT NULL REFERENCES matches(id),
			proposer_id BIGINT      NOT NULL REFERENCES users(id),
			receiver_id BIGINT      NOT NULL REFERENCES users(id),
			start_time  TIMESTAMPTZ NOT NULL,
			end_time    TIMESTAMPTZ NOT NULL,
			note        TEXT,
			status      VARCHAR(20) NOT NULL DEFAULT 'PROPOSED',
			message_id  BIGINT      NOT NULL REFERENCES messages(id),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (end_time > start_time)
		)`,

		// Notifications
		`CREATE TABLE IF NOT EXISTS notifications (
			id         BIGSERIAL   PRIMARY KEY,
			user_id    BIGINT      NOT NULL REFERENCES users(id),
			type       VARCHAR(30) NOT NULL,
			payload    JSONB       NOT NULL,
			is_read    BOOLEAN     NOT NULL DEFAULT FALSE,
			read_at    TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// One match per unordered user pair, regardless of direction
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_pair
			ON matches (LEAST(requester_id, receiver_id), GREATEST(requester_id, receiver_id))`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_matches_requester ON matches(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_receiver ON matches(receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_updated_at ON matches(updated_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_match ON messages(match_id, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_match_unread ON messages(match_id, is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_message ON schedules(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_proposer ON schedules(proposer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_receiver ON schedules(receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_status_start ON schedules(status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, id DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
