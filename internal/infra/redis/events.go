package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/mailsift/internal/core/domain"
)

const eventStream = "classification:events"

// EventPublisher publishes override events to a Redis stream so training
// pipelines can consume them without coupling to this process.
type EventPublisher struct {
	rdb *redis.Client
}

// NewEventPublisher creates a Redis-stream-backed publisher.
func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{rdb: client.rdb}
}

// Publish appends the event to the stream.
func (p *EventPublisher) Publish(ctx context.Context, event *domain.OverrideEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"type":    string(event.Type),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}
	return nil
}
