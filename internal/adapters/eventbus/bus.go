// Package eventbus is an in-process session event fan-out used when no
// NATS server is configured.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// Bus implements ports.EventPublisher and ports.EventSubscriber in memory.
// Handlers run synchronously on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func([]byte)
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[uint64]func([]byte))}
}

func (b *Bus) PublishSessionEvent(_ context.Context, evt *domain.SessionEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}

	b.mu.RLock()
	handlers := make([]func([]byte), 0, len(b.subs[evt.SessionID]))
	for _, h := range b.subs[evt.SessionID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

func (b *Bus) SubscribeSession(sessionID string, handler func(data []byte)) (func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[uint64]func([]byte))
	}
	b.subs[sessionID][id] = handler

	return func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[sessionID], id)
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
		return nil
	}, nil
}
