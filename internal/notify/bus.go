// Package notify propagates "auth state changed" signals. Deliveries carry
// no payload on purpose: a handler must re-derive its state from durable
// storage, never trust the event itself.
package notify

import (
	"log/slog"
	"sync"
)

type Handler func()

// Bus is the same-process delivery path. Publish dispatches synchronously
// to every live subscriber; a panicking handler is isolated so it cannot
// take the rest of the UI down with it.
type Bus struct {
	mu   sync.Mutex
	seq  int
	subs map[int]Handler
	log  *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]Handler),
		log:  log,
	}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) Publish() {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))

	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		b.dispatch(h)
	}
}

func (b *Bus) dispatch(h Handler) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("auth change handler panicked", "panic", r)
		}
	}()

	h()
}
