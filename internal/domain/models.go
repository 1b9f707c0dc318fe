package domain

import (
	"encoding/json"
	"time"
)

// MatchStatus is the lifecycle state of a match between two users.
type MatchStatus string

const (
	MatchPending  MatchStatus = "PENDING"
	MatchAccepted MatchStatus = "ACCEPTED"
	MatchRejected MatchStatus = "REJECTED"
)

// MessageType distinguishes plain chat text from schedule-protocol markers.
type MessageType string

const (
	MessageText              MessageType = "TEXT"
	MessageScheduleProposal  MessageType = "SCHEDULE_PROPOSAL"
	MessageScheduleConfirmed MessageType = "SCHEDULE_CONFIRMED"
	MessageScheduleCancelled MessageType = "SCHEDULE_CANCELLED"
)

// ScheduleStatus is the lifecycle state of a single candidate slot.
type ScheduleStatus string

const (
	ScheduleProposed  ScheduleStatus = "PROPOSED"
	ScheduleConfirmed ScheduleStatus = "CONFIRMED"
	ScheduleCancelled ScheduleStatus = "CANCELLED"
)

// NotificationType enumerates the durable notification kinds.
type NotificationType string

const (
	NotificationMatchRequest    NotificationType = "MATCH_REQUEST"
	NotificationMatchAccept     NotificationType = "MATCH_ACCEPT"
	NotificationMatchReject     NotificationType = "MATCH_REJECT"
	NotificationMessageReceived NotificationType = "MESSAGE_RECEIVED"
	NotificationMessageRead     NotificationType = "MESSAGE_READ"
)

// User is maintained by the external profile subsystem; the core only
// reads it for display purposes.
type User struct {
	ID          int64     `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"displayName"`
	Email       *string   `db:"email" json:"email,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Match is the directed contact request between two users. Exactly one
// match may exist per unordered user pair, in either direction.
type Match struct {
	ID          int64       `db:"id" json:"id"`
	RequesterID int64       `db:"requester_id" json:"requesterId"`
	ReceiverID  int64       `db:"receiver_id" json:"receiverId"`
	Status      MatchStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
	AcceptedAt  *time.Time  `db:"accepted_at" json:"acceptedAt,omitempty"`
	RejectedAt  *time.Time  `db:"rejected_at" json:"rejectedAt,omitempty"`
}

// HasParticipant reports whether the given user is one of the two sides.
func (m *Match) HasParticipant(userID int64) bool {
	return m.RequesterID == userID || m.ReceiverID == userID
}

// Counterpart returns the other participant's id.
func (m *Match) Counterpart(userID int64) int64 {
	if m.RequesterID == userID {
		return m.ReceiverID
	}
	return m.RequesterID
}

// Message is a single entry in a match's chat stream. Content is empty for
// schedule-protocol markers carrying no note.
type Message struct {
	ID        int64       `db:"id" json:"id"`
	MatchID   int64       `db:"match_id" json:"matchId"`
	SenderID  int64       `db:"sender_id" json:"senderId"`
	Content   string      `db:"content" json:"content"`
	Type      MessageType `db:"type" json:"type"`
	IsRead    bool        `db:"is_read" json:"isRead"`
	ReadAt    *time.Time  `db:"read_at" json:"readAt,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// Schedule is one candidate or confirmed meeting slot. Every schedule
// belongs to the message that introduced it; slots created by the same
// proposal share a message id and are siblings.
type Schedule struct {
	ID         int64          `db:"id" json:"id"`
	MatchID    int64          `db:"match_id" json:"matchId"`
	ProposerID int64          `db:"proposer_id" json:"proposerId"`
	ReceiverID int64          `db:"receiver_id" json:"receiverId"`
	StartTime  time.Time      `db:"start_time" json:"startTime"`
	EndTime    time.Time      `db:"end_time" json:"endTime"`
	Note       *string        `db:"note" json:"note,omitempty"`
	Status     ScheduleStatus `db:"status" json:"status"`
	MessageID  int64          `db:"message_id" json:"messageId"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// Counterpart identifies the other participant of a confirmed schedule,
// attached for calendar rendering.
type Counterpart struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
}

// ScheduleWithCounterpart is the calendar view of a confirmed slot.
type ScheduleWithCounterpart struct {
	Schedule
	Counterpart Counterpart `json:"counterpart"`
}

// Notification is the durable per-user event record. Payload is the
// type-specific JSON document produced at creation time.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"userId"`
	Type      NotificationType `db:"type" json:"type"`
	Payload   json.RawMessage  `db:"payload" json:"payload"`
	IsRead    bool             `db:"is_read" json:"isRead"`
	ReadAt    *time.Time       `db:"read_at" json:"readAt,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// MatchWithLatest decorates a match with its most recent message for the
// inbox listing.
type MatchWithLatest struct {
	Match
	LatestMessage *Message `json:"latestMessage,omitempty"`
}
