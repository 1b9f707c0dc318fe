package realtime

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// sseChannel writes events as SSE data frames onto a streamed response.
type sseChannel struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  chan struct{}
	once    sync.Once
}

func (c *sseChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *sseChannel) Close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *sseChannel) comment(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, ":%s\n\n", text); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// UserIDResolver yields the acting user id for the stream request. The
// HTTP auth middleware supplies it; the registry does not re-validate.
type UserIDResolver func(r *http.Request) (int64, bool)

// MakeSSEHandler returns the handler for the /api/events/stream endpoint.
// It registers an SSE channel for the user, emits an initial connected
// frame and keep-alive comments on the given interval, and unregisters on
// client disconnect.
func MakeSSEHandler(registry *Registry, resolveUser UserIDResolver, keepAlive time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := resolveUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache, no-transform")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		ch := &sseChannel{w: w, flusher: flusher, closed: make(chan struct{})}
		unregister := registry.Register(userID, ch)
		defer func() {
			unregister()
			ch.Close()
		}()

		fmt.Fprint(w, "event: connected\ndata: {}\n\n")
		flusher.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ch.closed:
				return
			case <-ticker.C:
				if err := ch.comment("keep-alive"); err != nil {
					return
				}
			}
		}
	}
}
