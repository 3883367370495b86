package interaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	assert.True(t, StateIdle.CanTransitionTo(StateSending))
	assert.True(t, StateSending.CanTransitionTo(StateIdle))
	assert.False(t, StateIdle.CanTransitionTo(StateIdle))
	assert.False(t, StateSending.CanTransitionTo(StateSending))
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "u1:c1", ScopeConversation.Key("u1", "c1"))
	assert.Equal(t, "u1", ScopeSession.Key("u1", "c1"))
	assert.Equal(t, ScopeSession.Key("u1", "c1"), ScopeSession.Key("u1", "c2"))
}

func TestMemoryTracker(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	state, err := tr.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)

	ok, err := tr.TryAcquire(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.TryAcquire(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	state, _ = tr.Get(ctx, "k")
	assert.Equal(t, StateSending, state)

	require.NoError(t, tr.Release(ctx, "k"))
	assert.ErrorIs(t, tr.Release(ctx, "k"), ErrInvalidTransition)

	state, _ = tr.Get(ctx, "k")
	assert.Equal(t, StateIdle, state)
}

func TestStateHubFiltersByOwner(t *testing.T) {
	hub := newStateHub()
	var got []StateChange
	stop := hub.watch("alice", func(c StateChange) { got = append(got, c) })

	hub.publish(StateChange{OwnerID: "bob", ConversationID: "c", State: StateSending})
	hub.publish(StateChange{OwnerID: "alice", ConversationID: "c", State: StateSending})
	stop()
	hub.publish(StateChange{OwnerID: "alice", ConversationID: "c", State: StateIdle})

	require.Len(t, got, 1)
	assert.Equal(t, StateSending, got[0].State)
}
