package service

import (
	"sync"
	"sync/atomic"
)

// Event represents a resource change.
type Event struct {
	Resource string // "layers" or "sessions"
	Action   string // "created", "updated", "deleted", "address"
	ID       string // resource ID
	Href     string // new address for "address" events
}

// Subscription receives the events matching its filter.
type Subscription struct {
	C     <-chan Event
	ch    chan Event
	match func(Event) bool
}

// EventBus is a fan-out pub/sub for change events. Slow subscribers miss
// events rather than block publishers.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Int64
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Publish sends an event to all matching subscribers without blocking.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if sub.match != nil && !sub.match(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a buffered subscription. A nil match receives every
// event.
func (b *EventBus) Subscribe(match func(Event) bool) *Subscription {
	ch := make(chan Event, 16)
	sub := &Subscription{C: ch, ch: ch, match: match}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (b *EventBus) Dropped() int64 { return b.dropped.Load() }

// ForSession matches the events of one session.
func ForSession(id string) func(Event) bool {
	return func(e Event) bool {
		return e.Resource == "sessions" && e.ID == id
	}
}
