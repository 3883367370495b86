package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat/internal/domain/interaction"
)

func newTestTracker(t *testing.T) (*RedisTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTracker(client, 5*time.Second, zerolog.Nop()), mr
}

func TestRedisTrackerAcquireRelease(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t)

	ok, err := tr.TryAcquire(ctx, "u1:c1")
	require.NoError(t, err)
	assert.True(t, ok)

	state, err := tr.Get(ctx, "u1:c1")
	require.NoError(t, err)
	assert.Equal(t, interaction.StateSending, state)

	ok, err = tr.TryAcquire(ctx, "u1:c1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.Release(ctx, "u1:c1"))
	state, err = tr.Get(ctx, "u1:c1")
	require.NoError(t, err)
	assert.Equal(t, interaction.StateIdle, state)

	assert.ErrorIs(t, tr.Release(ctx, "u1:c1"), interaction.ErrInvalidTransition)
}

func TestRedisTrackerSharedAcrossReplicas(t *testing.T) {
	ctx := context.Background()
	first, mr := newTestTracker(t)
	client, err := NewRedisClient(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()
	second := NewRedisTracker(client, 5*time.Second, zerolog.Nop())

	ok, err := first.TryAcquire(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryAcquire(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	state, err := second.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, interaction.StateSending, state)
}

func TestRedisTrackerLockExpires(t *testing.T) {
	ctx := context.Background()
	tr, mr := newTestTracker(t)

	ok, err := tr.TryAcquire(ctx, "u1:c1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(10 * time.Second)

	state, err := tr.Get(ctx, "u1:c1")
	require.NoError(t, err)
	assert.Equal(t, interaction.StateIdle, state)
	assert.NoError(t, tr.Release(ctx, "u1:c1"))
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "://nope")
	assert.Error(t, err)
}

func TestInstrumentedDelegates(t *testing.T) {
	ctx := context.Background()
	tr := Instrument(interaction.NewMemoryTracker())

	ok, err := tr.TryAcquire(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	state, _ := tr.Get(ctx, "k")
	assert.Equal(t, interaction.StateSending, state)
	require.NoError(t, tr.Release(ctx, "k"))
}
