package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/realtime"
)

// Broadcaster delivers a live event to all of a user's push channels.
// Satisfied by *realtime.Registry.
type Broadcaster interface {
	BroadcastToUser(userID int64, ev realtime.Event)
}

// Fanout runs the best-effort side effects that follow a committed state
// change: the durable notification insert and the live push. It never
// returns an error; a lost push is recoverable by client re-fetch, so
// failures are logged and swallowed.
type Fanout struct {
	notifications domain.NotificationRepository
	broadcaster   Broadcaster
}

func NewFanout(notifications domain.NotificationRepository, broadcaster Broadcaster) *Fanout {
	return &Fanout{
		notifications: notifications,
		broadcaster:   broadcaster,
	}
}

// Notify writes a durable notification for the user and pushes the
// matching notification.created event.
func (f *Fanout) Notify(ctx context.Context, userID int64, typ domain.NotificationType, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("fanout: marshal %s payload: %v", typ, err)
		return
	}

	n := &domain.Notification{
		UserID:  userID,
		Type:    typ,
		Payload: raw,
	}
	if err := f.notifications.Create(ctx, n); err != nil {
		log.Printf("fanout: create %s notification for user %d: %v", typ, userID, err)
		return
	}

	f.broadcaster.BroadcastToUser(userID, realtime.Event{
		Event: realtime.EventNotificationCreated,
		Data: realtime.NotificationCreatedData{
			ID:        n.ID,
			Type:      string(n.Type),
			Payload:   n.Payload,
			CreatedAt: n.CreatedAt,
			IsRead:    n.IsRead,
			ReadAt:    n.ReadAt,
		},
	})
}

// Push broadcasts a live event without a durable record.
func (f *Fanout) Push(userID int64, event string, data any) {
	f.broadcaster.BroadcastToUser(userID, realtime.Event{Event: event, Data: data})
}
