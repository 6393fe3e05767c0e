// Package notify is the in-process publish/subscribe channel the article
// store uses to announce post-write state to observers.
package notify

import (
	"sync"

	"github.com/offcache/wikicache/internal/domain"
)

// DefaultBuffer is the per-subscriber queue size used when callers pass 0.
const DefaultBuffer = 16

// Broker fans out store change events to subscribers.
//
// Delivery is non-blocking: when a subscriber's buffer is full the event
// is dropped for that subscriber. Observers that must never miss state
// (the storage accountant) recompute from the store on every event, so a
// dropped event is coalesced into the next one rather than lost.
type Broker struct {
	mu   sync.Mutex
	subs map[int]chan domain.Change
	next int
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan domain.Change)}
}

// Subscribe registers a new observer and returns its event channel plus a
// cancel function. Cancel closes the channel; it is safe to call twice.
func (b *Broker) Subscribe(buffer int) (<-chan domain.Change, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan domain.Change, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Publish delivers a change to every current subscriber without blocking.
func (b *Broker) Publish(c domain.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
			// subscriber is lagging, coalesce into its next recompute
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
