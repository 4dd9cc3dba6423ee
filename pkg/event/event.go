// Package event is the in-process domain event bus. Services fire events
// after a state change commits; listeners (logging, broker forwarding) must
// not affect the outcome of the request that fired them.
package event

import (
	"context"
	"sync"
)

const (
	OrderCreated     = "order.created"
	OrderPaid        = "order.paid"
	OrderStatus      = "order.status_changed"
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	ImageUploaded    = "image.uploaded"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, name string, payload interface{})

// Bus dispatches events to listeners. A nil *Bus drops every event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	inflight sync.WaitGroup
}

func New() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

// Listen registers handler for the given event names.
func (b *Bus) Listen(handler Handler, names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range names {
		b.handlers[n] = append(b.handlers[n], handler)
	}
}

func (b *Bus) snapshot(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := make([]Handler, len(b.handlers[name]))
	copy(hs, b.handlers[name])
	return hs
}

// Fire dispatches an event synchronously to all registered listeners.
func (b *Bus) Fire(ctx context.Context, name string, payload interface{}) {
	if b == nil {
		return
	}
	for _, h := range b.snapshot(name) {
		h(ctx, name, payload)
	}
}

// FireAsync dispatches to every listener on its own goroutine and returns
// immediately. The context passed to listeners keeps ctx's values but not
// its cancellation.
func (b *Bus) FireAsync(ctx context.Context, name string, payload interface{}) {
	if b == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, h := range b.snapshot(name) {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			h(detached, name, payload)
		}(h)
	}
}

// Wait blocks until every listener started by FireAsync has returned.
func (b *Bus) Wait() {
	if b != nil {
		b.inflight.Wait()
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}
