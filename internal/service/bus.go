// Package service holds the in-process plumbing shared by the editor,
// the rendering surface and the HTTP layer.
package service

import (
	"sync"

	"github.com/joeblew999/plat-overlay/internal/metrics"
)

// Topics carried on the bus.
const (
	TopicGraphic     = "graphic"
	TopicFit         = "fit"
	TopicMoved       = "moved"
	TopicDoubleClick = "dblclick"
)

// Event is a single notification. Payload is topic specific.
type Event struct {
	Topic   string // e.g. "graphic"
	Action  string // "place", "update", "remove", "created", ...
	ID      string // graphic id or overlay ref
	Payload any
}

// EventBus is a simple fan-out pub/sub for editor and surface events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	size int
}

// NewEventBus creates a new event bus whose subscribers buffer size events.
func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = 64
	}
	return &EventBus{subs: make(map[chan Event]struct{}), size: size}
}

// Publish sends an event to all subscribers without blocking. A subscriber
// whose buffer is full has missed state, so it is unsubscribed and its
// channel closed; it must subscribe again and resync.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			delete(b.subs, ch)
			close(ch)
			metrics.EvictedSubscribers.Inc()
		}
	}
}

// Subscribe returns a buffered channel that receives events. The channel
// is closed on Unsubscribe or when the subscriber falls behind.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers is the current subscriber count.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
