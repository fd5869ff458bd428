// Package events carries domain events between stores. Stores publish,
// the coordinator subscribes; no store reaches into another store's cache.
package events

import (
	"sync"

	"github.com/reelclub/reelclub/internal/domain"
)

// Handler receives published events.
type Handler func(domain.Event)

// Bus is a synchronous in-process publish/subscribe. Dispatch runs on the
// publisher's goroutine in subscription order, so an event's follow-up
// operations complete before the publishing operation returns.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers evt to every handler. Publishers must not hold their own
// store lock across this call; handlers may call back into any store.
func (b *Bus) Publish(evt domain.Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
