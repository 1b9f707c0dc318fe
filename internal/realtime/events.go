package realtime

import (
	"encoding/json"
	"time"
)

// Event is the envelope pushed to connected clients. Data shapes are part
// of the wire contract and must keep their field names stable.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Event names.
const (
	EventNotificationCreated = "notification.created"
	EventNotificationRead    = "notification.read"
	EventMessageCreated      = "message.created"
	EventMessageRead         = "message.read"
	EventMessageUpdated      = "message.updated"
	EventScheduleChanged     = "schedule.changed"
)

// NotificationCreatedData mirrors the durable notification record.
type NotificationCreatedData struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	IsRead    bool            `json:"isRead"`
	ReadAt    *time.Time      `json:"readAt"`
}

// NotificationReadData announces a notification's read transition.
type NotificationReadData struct {
	ID     int64      `json:"id"`
	ReadAt *time.Time `json:"readAt"`
}

// MessageCreatedData points at a new message; clients re-fetch the stream.
type MessageCreatedData struct {
	MatchID   int64 `json:"matchId"`
	MessageID int64 `json:"messageId"`
}

// MessageReadData announces a message's read transition.
type MessageReadData struct {
	MatchID   int64 `json:"matchId"`
	MessageID int64 `json:"messageId"`
	ReaderID  int64 `json:"readerId"`
}

// MessageUpdatedData points at a mutated message (schedule marker advance).
type MessageUpdatedData struct {
	MatchID   int64 `json:"matchId"`
	MessageID int64 `json:"messageId"`
}

// ScheduleChangedData lists the schedule rows touched by a transition.
type ScheduleChangedData struct {
	ScheduleIDs []int64 `json:"scheduleIds"`
	MatchID     int64   `json:"matchId"`
}
