package events

import (
	"context"
	"sync"

	"github.com/vietddude/mailsift/internal/core/domain"
)

// Publisher is the outbound channel for override events. Consumers (e.g.
// training pipelines) subscribe to the backing queue without coupling to
// this process.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OverrideEvent) error
}

// MemoryPublisher buffers events in process. Used when Redis is not
// configured, and in tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*domain.OverrideEvent
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, event *domain.OverrideEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []*domain.OverrideEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.OverrideEvent(nil), p.events...)
}
