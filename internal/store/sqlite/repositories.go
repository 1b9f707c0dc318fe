package sqlite

import (
	"database/sql"

	"github.com/jphacks/os-2518/internal/domain"
)

// NewRepositories bundles all SQLite-backed repositories.
func NewRepositories(db *sql.DB) domain.Repositories {
	return domain.Repositories{
		Users:         NewUserRepo(db),
		Matches:       NewMatchRepo(db),
		Messages:      NewMessageRepo(db),
		Schedules:     NewScheduleRepo(db),
		Notifications: NewNotificationRepo(db),
	}
}
