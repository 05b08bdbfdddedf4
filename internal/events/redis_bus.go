package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisEventBus publishes events over Redis Pub/Sub for out-of-band
// delivery by whatever is subscribed to the user channels.
type RedisEventBus struct {
	client   redis.UniversalClient
	resolver ChannelResolver
}

func NewRedisEventBus(client redis.UniversalClient, resolver ChannelResolver) *RedisEventBus {
	if resolver == nil {
		resolver = NewUserChannelResolver()
	}
	return &RedisEventBus{client: client, resolver: resolver}
}

func (b *RedisEventBus) Publish(ctx context.Context, event Event) error {
	channels := b.resolver.ResolveChannels(event)
	if len(channels) == 0 {
		return nil
	}

	env, err := NewEnvelope(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	var failed []string
	for _, channel := range channels {
		if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
			failed = append(failed, channel)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to publish %s to %v", event.Type(), failed)
	}
	return nil
}
