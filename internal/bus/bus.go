// Package bus provides the in-process event bus that decouples the
// conversation store from its consumers (presentation, notifications).
package bus

import (
	"strings"
	"sync"
	"time"
)

// Subscription receives events for one subscriber. Events arrive on C
// until Cancel is called.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

// Cancel removes the subscription from the bus.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Bus is an in-process publish/subscribe event bus with namespace
// prefix filtering. Publish never blocks: a subscriber that cannot keep
// up loses events rather than stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Publish delivers an event to every subscriber whose prefix matches
// the event kind. A zero timestamp is filled in with the current time.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !strings.HasPrefix(evt.Kind, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Subscriber buffer full; drop rather than block.
		}
	}
}

// Subscribe registers a subscriber for all events whose kind starts
// with prefix. An empty prefix matches everything.
func (b *Bus) Subscribe(prefix string, bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{prefix: prefix, ch: ch}
	b.mu.Unlock()

	return &Subscription{
		C: ch,
		cancel: func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		},
	}
}
