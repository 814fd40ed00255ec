package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the part of *redis.Client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink forwards events as JSON to a Redis pub/sub channel.
type RedisSink struct {
	client  Publisher
	channel string
}

// NewRedisSink returns nil when client is nil so callers can skip wiring.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	if client == nil || channel == "" {
		return nil
	}
	return &RedisSink{client: client, channel: channel}
}

// Handle implements EventHandler.
func (s *RedisSink) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}
