package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The modernc driver serializes access per connection; one connection
	// avoids SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the langmatch schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id           INTEGER   PRIMARY KEY AUTOINCREMENT,
			display_name TEXT      NOT NULL,
			email        TEXT      UNIQUE,
			created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id           INTEGER   PRIMARY KEY AUTOINCREMENT,
			requester_id INTEGER   NOT NULL REFERENCES users(id),
			receiver_id  INTEGER   NOT NULL REFERENCES users(id),
			status       TEXT      NOT NULL DEFAULT 'PENDING',
			created_at   TIMESTAMP NOT NULL,
			updated_at   TIMESTAMP NOT NULL,
			accepted_at  TIMESTAMP,
			rejected_at  TIMESTAMP,
			CHECK (requester_id <> receiver_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER   PRIMARY KEY AUTOINCREMENT,
			match_id   INTEGER   NOT NULL REFERENCES matches(id),
			sender_id  INTEGER   NOT NULL REFERENCES users(id),
			content    TEXT      NOT NULL DEFAULT '',
			type       TEXT      NOT NULL DEFAULT 'TEXT',
			is_read    BOOLEAN   NOT NULL DEFAULT FALSE,
			read_at    TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS schedules (
			id          INTEGER   PRIMARY KEY AUTOINCREMENT,
			match_id    INTEGER   NOT NULL REFERENCES matches(id),
			proposer_id INTEGER   NOT NULL REFERENCES users(id),
			receiver_id INTEGER   NOT NULL REFERENCES users(id),
			start_time  TIMESTAMP NOT NULL,
			end_time    TIMESTAMP NOT NULL,
			note        TEXT,
			status      TEXT      NOT NULL DEFAULT 'PROPOSED',
			message_id  INTEGER   NOT NULL REFERENCES messages(id),
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL,
			CHECK (end_time > start_time)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER   PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER   NOT NULL REFERENCES users(id),
			type       TEXT      NOT NULL,
			payload    TEXT      NOT NULL,
			is_read    BOOLEAN   NOT NULL DEFAULT FALSE,
			read_at    TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,

		// One match per unordered user pair, regardless of direction
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_pair
			ON matches (MIN(requester_id, receiver_id), MAX(requester_id, receiver_id))`,

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
