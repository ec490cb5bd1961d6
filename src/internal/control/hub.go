// Package control exposes the update pipeline over a loopback gRPC service.
package control

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// PollerSource tags events published for poller results
const PollerSource = "poller"

// Hub fans events out to watchers. Each watcher has its own buffered
// channel; a full channel drops events for that watcher only.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]events.Channel
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{watchers: make(map[string]events.Channel)}
}

// Emit delivers e to every watcher
func (h *Hub) Emit(e models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.watchers {
		ch.Emit(e)
	}
}

// Subscribe registers a watcher. cancel unregisters it and closes the
// channel.
func (h *Hub) Subscribe(buffer int) (<-chan models.Event, func()) {
	id := uuid.New().String()
	ch := make(events.Channel, buffer)

	h.mu.Lock()
	h.watchers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.watchers, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Watchers returns the number of registered watchers
func (h *Hub) Watchers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// PublishCheck broadcasts a poller check result as a log event
func (h *Hub) PublishCheck(res models.CheckResult) {
	h.Emit(models.LogEvent(PollerSource, "", describeCheck(res)))
}

func describeCheck(res models.CheckResult) string {
	switch res.Outcome {
	case models.CheckUpdateAvailable:
		return fmt.Sprintf("update available: %s -> %s", res.CurrentVersion, res.LatestVersion)
	case models.CheckFailed:
		return "update check failed: " + res.Reason
	}
	return "up to date: " + res.CurrentVersion
}
