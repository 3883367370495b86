// Package interaction implements the chat interaction loop: conversation
// lifecycle, message send with the AI responder round trip, and the
// idle/sending gate that presentation layers use to disable input.
package interaction

import (
	"context"
	"errors"
	"sync"
)

// State is the transient interaction state of one scope key.
type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

// ErrInvalidTransition is returned when a state transition is not allowed.
var ErrInvalidTransition = errors.New("invalid interaction state transition")

// ValidTransitions defines allowed state transitions.
var ValidTransitions = map[State][]State{
	StateIdle:    {StateSending},
	StateSending: {StateIdle},
}

// CanTransitionTo checks if a transition from s to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Scope decides how wide a single in-flight exchange reaches.
type Scope string

const (
	// ScopeConversation keeps one state per conversation.
	ScopeConversation Scope = "conversation"
	// ScopeSession keeps one state per principal, blocking all its conversations.
	ScopeSession Scope = "session"
)

// Key returns the tracker key for an owner and conversation under this scope.
func (s Scope) Key(ownerID, conversationID string) string {
	if s == ScopeSession {
		return ownerID
	}
	return ownerID + ":" + conversationID
}

// Tracker holds interaction states. TryAcquire moves a key from idle to
// sending and reports false when it is already sending.
type Tracker interface {
	TryAcquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (State, error)
}

// MemoryTracker is a process-local Tracker.
type MemoryTracker struct {
	mu      sync.Mutex
	sending map[string]struct{}
}

// NewMemoryTracker creates an empty tracker; every key starts idle.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{sending: make(map[string]struct{})}
}

func (t *MemoryTracker) TryAcquire(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.sending[key]; busy {
		return false, nil
	}
	t.sending[key] = struct{}{}
	return true, nil
}

func (t *MemoryTracker) Release(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.sending[key]; !busy {
		return ErrInvalidTransition
	}
	delete(t.sending, key)
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, key string) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.sending[key]; busy {
		return StateSending, nil
	}
	return StateIdle, nil
}

// StateChange is published whenever a key transitions.
type StateChange struct {
	OwnerID        string `json:"owner_id"`
	ConversationID string `json:"conversation_id"`
	State          State  `json:"state"`
}

// StateBus relays state changes between replicas that share a Tracker.
// Every change published by any replica, this one included, is handed to
// the function registered with Listen.
type StateBus interface {
	Publish(ctx context.Context, change StateChange) error
	Listen(deliver func(StateChange))
}

// stateHub fans state changes out to in-process watchers.
type stateHub struct {
	mu       sync.RWMutex
	nextID   int
	watchers map[int]stateWatcher
}

type stateWatcher struct {
	ownerID string
	fn      func(StateChange)
}

func newStateHub() *stateHub {
	return &stateHub{watchers: make(map[int]stateWatcher)}
}

func (h *stateHub) watch(ownerID string, fn func(StateChange)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = stateWatcher{ownerID: ownerID, fn: fn}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.watchers, id)
		h.mu.Unlock()
	}
}

func (h *stateHub) publish(change StateChange) {
	h.mu.RLock()
	targets := make([]func(StateChange), 0, len(h.watchers))
	for _, w := range h.watchers {
		if w.ownerID == change.OwnerID {
			targets = append(targets, w.fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(change)
	}
}
