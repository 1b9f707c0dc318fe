package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Channel is one live push connection. Implementations must be safe for
// concurrent Send calls. A failed Send marks the channel dead; the
// registry prunes it and calls Close.
type Channel interface {
	Send(payload []byte) error
	Close()
}

// Registry maps user ids to their open push channels and fans events out
// to all of them. It is process-wide in-memory state: a multi-instance
// deployment would need an external pub/sub layer instead.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]map[string]Channel
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int64]map[string]Channel),
	}
}

// Register adds a channel for the given user and returns the function that
// removes it again. Removal is idempotent.
func (r *Registry) Register(userID int64, ch Channel) func() {
	key := uuid.NewString()

	r.mu.Lock()
	if r.conns[userID] == nil {
		r.conns[userID] = make(map[string]Channel)
	}
	r.conns[userID][key] = ch
	r.mu.Unlock()

	return func() {
		r.remove(userID, key)
	}
}

func (r *Registry) remove(userID int64, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.conns[userID]; ok {
		delete(conns, key)
		if len(conns) == 0 {
			delete(r.conns, userID)
		}
	}
}

// BroadcastToUser serializes the event once and delivers it to every live
// channel of the user. Delivery is fire-and-forget: channels whose send
// fails are closed and pruned, and a user with no channels is a no-op.
func (r *Registry) BroadcastToUser(userID int64, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", ev.Event, err)
		return
	}

	r.mu.RLock()
	targets := make(map[string]Channel, len(r.conns[userID]))
	for key, ch := range r.conns[userID] {
		targets[key] = ch
	}
	r.mu.RUnlock()

	for key, ch := range targets {
		if err := ch.Send(payload); err != nil {
			r.remove(userID, key)
			ch.Close()
		}
	}
}

// ConnectionCount reports the number of live channels for a user.
func (r *Registry) ConnectionCount(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}
