package events

import (
	"context"
	"sync"
)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type EventHandler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// LocalBus delivers events synchronously to in-process handlers. It is the
// publisher used when Redis is disabled.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[EventType][]EventHandler)}
}

func (b *LocalBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
