// Package eventbus implements the Recorder Manager's broadcast bus:
// single-producer-per-Recorder, multi-consumer, bounded capacity per
// subscriber, drop-oldest-for-lagging-consumer overflow. Built on a
// subscriber-map + non-blocking-send pattern, adapted to drop the oldest
// queued event (rather than the newest) so a slow consumer resynchronizes
// instead of stalling on stale state.
package eventbus

import (
	"sync"

	"github.com/jmylchreest/tvarr/internal/models"
)

// Event wraps a lifecycle event together with a Lagged flag, set when this
// delivery follows one or more dropped events for the subscriber.
type Event struct {
	models.LifecycleEvent
	Lagged bool
}

// Subscriber is a single consumer's handle on the bus.
type Subscriber struct {
	id     uint64
	events chan Event
}

// Events returns the channel to range over for delivered events.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Bus fans lifecycle events out to every active Subscriber.
type Bus struct {
	mu          sync.RWMutex
	capacity    int
	nextID      uint64
	subscribers map[uint64]*Subscriber
}

// New constructs a Bus whose subscriber channels are each buffered to
// capacity (defaulting to 1024).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Bus{capacity: capacity, subscribers: make(map[uint64]*Subscriber)}
}

// Subscribe registers a new consumer and returns its handle.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscriber{id: b.nextID, events: make(chan Event, b.capacity)}
	b.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than
// once or with an already-removed subscriber.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub.id]; ok {
		delete(b.subscribers, sub.id)
		close(sub.events)
	}
}

// Publish fans event out to every subscriber. A subscriber whose channel is
// full has its oldest queued event dropped to make room, and the delivered
// event is marked Lagged so the consumer knows it missed something,
// instead of blocking the producer.
func (b *Bus) Publish(event models.LifecycleEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		deliver := Event{LifecycleEvent: event}
		select {
		case sub.events <- deliver:
			continue
		default:
		}

		select {
		case <-sub.events:
		default:
		}
		deliver.Lagged = true
		select {
		case sub.events <- deliver:
		default:
			// Channel still full despite the drop (a racing consumer re-filled
			// it); skip, the next publish will retry the drop.
		}
	}
}

// Shutdown closes and removes every subscriber.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.events)
		delete(b.subscribers, id)
	}
}
