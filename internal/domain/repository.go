package domain

import (
	"context"
	"time"
)

// UserRepository reads users owned by the external profile subsystem.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
}

// MatchListFilter narrows and paginates ListForUser.
type MatchListFilter struct {
	Status *MatchStatus
	Cursor int64 // last seen match id; 0 for the first page
	Limit  int
}

// MatchRepository defines persistence operations for matches.
type MatchRepository interface {
	// Create inserts the match and, when seed is non-nil, one TEXT message
	// from the requester in the same transaction.
	Create(ctx context.Context, m *Match, seed *string) error
	GetByID(ctx context.Context, id int64) (*Match, error)
	// FindBetween returns the match between the two users regardless of
	// direction, or nil when none exists.
	FindBetween(ctx context.Context, userA, userB int64) (*Match, error)
	// Resolve moves a match out of PENDING and stamps the outcome time.
	Resolve(ctx context.Context, id int64, status MatchStatus, resolvedAt time.Time) error
	ListForUser(ctx context.Context, userID int64, f MatchListFilter) ([]*Match, error)
}

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListForMatch returns messages newest-first, paginated backward by id.
	ListForMatch(ctx context.Context, matchID, cursor int64, limit int) ([]*Message, error)
	LatestForMatch(ctx context.Context, matchID int64) (*Message, error)
	MarkRead(ctx context.Context, id int64, readAt time.Time) error
	// MarkAllRead flags every unread message in the match not sent by the
	// given user and returns the number of rows affected.
	MarkAllRead(ctx context.Context, matchID, readerID int64, readAt time.Time) (int64, error)
}

// ScheduleRepository defines persistence operations for schedules. The
// multi-row methods own their transaction boundary: they either apply all
// contained writes or none.
type ScheduleRepository interface {
	// CreateBatch inserts the carrier message and one schedule row per
	// slot, all sharing the new message id, in one transaction.
	CreateBatch(ctx context.Context, msg *Message, slots []*Schedule) error
	GetByID(ctx context.Context, id int64) (*Schedule, error)
	ListByMessage(ctx context.Context, messageID int64) ([]*Schedule, error)
	// Confirm marks the schedule CONFIRMED, cancels every sibling under the
	// same message with a single statement, and advances the carrier
	// message to SCHEDULE_CONFIRMED, atomically.
	Confirm(ctx context.Context, scheduleID, messageID int64, now time.Time) error
	// CancelBatch cancels every non-cancelled schedule under the message,
	// marks the carrier message SCHEDULE_CANCELLED and inserts the new
	// cancellation message, atomically.
	CancelBatch(ctx context.Context, messageID int64, cancellation *Message, now time.Time) error
	ListConfirmedForUser(ctx context.Context, userID int64) ([]*ScheduleWithCounterpart, error)
}

// NotificationListFilter narrows and paginates ListForUser.
type NotificationListFilter struct {
	UnreadOnly bool
	Cursor     int64
	Limit      int
}

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetForUser(ctx context.Context, id, userID int64) (*Notification, error)
	ListForUser(ctx context.Context, userID int64, f NotificationListFilter) ([]*Notification, error)
	MarkRead(ctx context.Context, id int64, readAt time.Time) error
}

// Repositories bundles one store's implementations for wiring.
type Repositories struct {
	Users         UserRepository
	Matches       MatchRepository
	Messages      MessageRepository
	Schedules     ScheduleRepository
	Notifications NotificationRepository
}
