// Package events carries in-band checkout notifications from payment contexts
// to their subscribers. It stands in for the browser's message channel:
// checkout contexts publish, the orchestrator subscribes once and routes by
// correlation id.
package events

import (
	"sync"

	"github.com/quickbytes/payflow/internal/payment"
)

// Bus is an in-memory fan-out of payment notifications. Delivery is
// synchronous: Publish returns after every subscriber ran to completion,
// matching the run-to-completion semantics the listener relies on.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(payment.Notification)
}

// NewBus returns an empty notification bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(payment.Notification))}
}

// Subscribe registers fn and returns the function that detaches it again.
// Detaching is idempotent.
func (b *Bus) Subscribe(fn func(payment.Notification)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers n to every current subscriber. Subscribers registered or
// detached while Publish runs are not affected by this delivery.
func (b *Bus) Publish(n payment.Notification) {
	b.mu.Lock()
	fns := make([]func(payment.Notification), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
}

// Subscribers reports the current number of attached subscribers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
