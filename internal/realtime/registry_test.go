package realtime_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jphacks/os-2518/internal/realtime"
)

type fakeChannel struct {
	mu       sync.Mutex
	payloads [][]byte
	failSend bool
	closed   bool
}

func (c *fakeChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("connection gone")
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeChannel) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestRegistryBroadcast(t *testing.T) {
	t.Run("DeliversToAllUserChannels", func(t *testing.T) {
		reg := realtime.NewRegistry()
		a, b := &fakeChannel{}, &fakeChannel{}
		other := &fakeChannel{}

		reg.Register(1, a)
		reg.Register(1, b)
		reg.Register(2, other)

		reg.BroadcastToUser(1, realtime.Event{Event: realtime.EventMessageCreated, Data: realtime.MessageCreatedData{MatchID: 10, MessageID: 100}})

		assert.Equal(t, 1, a.received())
		assert.Equal(t, 1, b.received())
		assert.Equal(t, 0, other.received())

		var ev struct {
			Event string `json:"event"`
			Data  struct {
				MatchID int64 `json:"matchId"`
			} `json:"data"`
		}
		assert.NoError(t, json.Unmarshal(a.payloads[0], &ev))
		assert.Equal(t, "message.created", ev.Event)
		assert.Equal(t, int64(10), ev.Data.MatchID)
	})

	t.Run("NoChannelsIsNoOp", func(t *testing.T) {
		reg := realtime.NewRegistry()
		reg.BroadcastToUser(42, realtime.Event{Event: realtime.EventNotificationCreated})
	})

	t.Run("PrunesFailedChannels", func(t *testing.T) {
		reg := realtime.NewRegistry()
		healthy := &fakeChannel{}
		dead := &fakeChannel{failSend: true}

		reg.Register(1, healthy)
		reg.Register(1, dead)
		assert.Equal(t, 2, reg.ConnectionCount(1))

		reg.BroadcastToUser(1, realtime.Event{Event: realtime.EventNotificationCreated})

		assert.Equal(t, 1, reg.ConnectionCount(1))
		assert.True(t, dead.closed)
		assert.Equal(t, 1, healthy.received())

		// The healthy channel keeps receiving after the prune.
		reg.BroadcastToUser(1, realtime.Event{Event: realtime.EventNotificationCreated})
		assert.Equal(t, 2, healthy.received())
	})

	t.Run("UnregisterIsIdempotent", func(t *testing.T) {
		reg := realtime.NewRegistry()
		ch := &fakeChannel{}

		unregister := reg.Register(1, ch)
		assert.Equal(t, 1, reg.ConnectionCount(1))

		unregister()
		unregister()
		assert.Equal(t, 0, reg.ConnectionCount(1))

		reg.BroadcastToUser(1, realtime.Event{Event: realtime.EventNotificationCreated})
		assert.Equal(t, 0, ch.received())
	})
}
