package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/interaction"
)

const stateChannel = "jan-chat:interaction-state"

// RedisStateBus fans interaction state changes out to every replica over a
// redis pub/sub channel.
type RedisStateBus struct {
	client *redis.Client
	pubsub *redis.PubSub
	log    zerolog.Logger
	done   chan struct{}

	mu      sync.RWMutex
	deliver func(interaction.StateChange)
}

// NewRedisStateBus subscribes to the state channel and waits for the
// subscription to be confirmed.
func NewRedisStateBus(ctx context.Context, client *redis.Client, log zerolog.Logger) (*RedisStateBus, error) {
	pubsub := client.Subscribe(ctx, stateChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", stateChannel, err)
	}

	b := &RedisStateBus{
		client: client,
		pubsub: pubsub,
		log:    log.With().Str("component", "redis-state-bus").Logger(),
		done:   make(chan struct{}),
	}
	go b.run(pubsub.Channel())
	return b, nil
}

func (b *RedisStateBus) Publish(ctx context.Context, change interaction.StateChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode state change: %w", err)
	}
	if err := b.client.Publish(ctx, stateChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish state change: %w", err)
	}
	return nil
}

// Listen replaces the delivery target. Changes received with no target are dropped.
func (b *RedisStateBus) Listen(deliver func(interaction.StateChange)) {
	b.mu.Lock()
	b.deliver = deliver
	b.mu.Unlock()
}

func (b *RedisStateBus) run(messages <-chan *redis.Message) {
	defer close(b.done)
	for msg := range messages {
		var change interaction.StateChange
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			b.log.Warn().Err(err).Msg("discarding malformed state change")
			continue
		}

		b.mu.RLock()
		deliver := b.deliver
		b.mu.RUnlock()
		if deliver != nil {
			deliver(change)
		}
	}
}

// Close unsubscribes and waits briefly for the receive loop to drain.
func (b *RedisStateBus) Close() error {
	err := b.pubsub.Close()
	select {
	case <-b.done:
	case <-time.After(time.Second):
	}
	return err
}

var _ interaction.StateBus = (*RedisStateBus)(nil)
