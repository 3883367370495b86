// Package state provides interaction state trackers shared across gateway replicas.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/interaction"
)

const keyPrefix = "jan-chat:interaction:"

// NewRedisClient parses the URL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisTracker keeps the sending state in a redsync lock so the
// one-in-flight guarantee holds across replicas. The lock expires after ttl.
type RedisTracker struct {
	client *redis.Client
	rs     *redsync.Redsync
	ttl    time.Duration
	log    zerolog.Logger

	mu   sync.Mutex
	held map[string]*redsync.Mutex
}

// NewRedisTracker creates a tracker over client.
func NewRedisTracker(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisTracker {
	return &RedisTracker{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		log:    log.With().Str("component", "redis-state-tracker").Logger(),
		held:   make(map[string]*redsync.Mutex),
	}
}

func (t *RedisTracker) TryAcquire(ctx context.Context, key string) (bool, error) {
	mutex := t.rs.NewMutex(keyPrefix+key, redsync.WithExpiry(t.ttl), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		state, getErr := t.Get(ctx, key)
		if getErr == nil && state == interaction.StateSending {
			return false, nil
		}
		return false, fmt.Errorf("lock interaction state: %w", err)
	}

	t.mu.Lock()
	t.held[key] = mutex
	t.mu.Unlock()
	return true, nil
}

func (t *RedisTracker) Release(ctx context.Context, key string) error {
	t.mu.Lock()
	mutex, ok := t.held[key]
	delete(t.held, key)
	t.mu.Unlock()
	if !ok {
		return interaction.ErrInvalidTransition
	}

	if unlocked, err := mutex.UnlockContext(ctx); err != nil || !unlocked {
		// The lock already expired; the key is idle either way.
		t.log.Warn().Err(err).Str("key", key).Msg("interaction lock was not held at release")
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, key string) (interaction.State, error) {
	n, err := t.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return interaction.StateIdle, fmt.Errorf("read interaction state: %w", err)
	}
	if n > 0 {
		return interaction.StateSending, nil
	}
	return interaction.StateIdle, nil
}

var _ interaction.Tracker = (*RedisTracker)(nil)
