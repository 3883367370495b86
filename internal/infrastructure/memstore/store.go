// Package memstore is a process-local conversation store with live feeds.
// It backs STORE_BACKEND=memory and the domain tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// Store implements conversation.Store in memory. Feed handlers run
// synchronously on the writer's goroutine and must not call back into the store.
type Store struct {
	// deliverMu serializes writes with their notifications so every
	// subscriber observes the log in insertion order.
	deliverMu sync.Mutex
	mu        sync.RWMutex

	conversations map[string]*conversation.Conversation
	messages      map[string][]*conversation.Message
	lastTick      time.Time
	now           func() time.Time

	nextSub int
	msgSubs map[string]map[int]conversation.MessageHandler
	dirSubs map[string]map[int]conversation.DirectoryHandler
}

// New creates an empty store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*conversation.Conversation),
		messages:      make(map[string][]*conversation.Message),
		now:           time.Now,
		msgSubs:       make(map[string]map[int]conversation.MessageHandler),
		dirSubs:       make(map[string]map[int]conversation.DirectoryHandler),
	}
}

// tick returns a strictly increasing timestamp. Caller holds mu.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastTick) {
		t = s.lastTick.Add(time.Microsecond)
	}
	s.lastTick = t
	return t
}

func (s *Store) Create(ctx context.Context, conv *conversation.Conversation) error {
	if conv.OwnerID == "" {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonRejected, "conversation owner is required", nil)
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	now := s.tick()
	conv.ID = uuid.NewString()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	stored := *conv
	s.conversations[conv.ID] = &stored
	s.mu.Unlock()

	s.notifyDirectory(conv.OwnerID)
	return nil
}

func (s *Store) Get(ctx context.Context, ownerID, id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, err := s.ownedLocked(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	out := *conv
	return &out, nil
}

func (s *Store) Rename(ctx context.Context, ownerID, id, title string) (*conversation.Conversation, error) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	conv, err := s.ownedLocked(ctx, ownerID, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	conv.Title = title
	conv.UpdatedAt = s.tick()
	out := *conv
	s.mu.Unlock()

	s.notifyDirectory(ownerID)
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if _, err := s.ownedLocked(ctx, ownerID, id); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	s.mu.Unlock()

	s.notifyDirectory(ownerID)
	return nil
}

func (s *Store) ListSummaries(_ context.Context, ownerID string) ([]*conversation.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summariesLocked(ownerID), nil
}

func (s *Store) Append(ctx context.Context, ownerID string, msg *conversation.Message) error {
	if !msg.Role.Valid() || msg.Content == "" {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonRejected, "message requires a role and content", nil)
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	conv, err := s.ownedLocked(ctx, ownerID, msg.ConversationID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.tick()
	msg.ID = uuid.NewString()
	msg.CreatedAt = now
	conv.UpdatedAt = now
	stored := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &stored)
	handlers := collect(s.msgSubs[msg.ConversationID])
	s.mu.Unlock()

	for _, h := range handlers {
		out := stored
		h(&out)
	}
	s.notifyDirectory(ownerID)
	return nil
}

func (s *Store) ListMessages(ctx context.Context, ownerID, conversationID string) ([]*conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedLocked(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	return cloneMessages(s.messages[conversationID]), nil
}

func (s *Store) SubscribeMessages(ctx context.Context, ownerID, conversationID string, handler conversation.MessageHandler) (conversation.Subscription, error) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if _, err := s.ownedLocked(ctx, ownerID, conversationID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	id := s.nextSub
	s.nextSub++
	if s.msgSubs[conversationID] == nil {
		s.msgSubs[conversationID] = make(map[int]conversation.MessageHandler)
	}
	s.msgSubs[conversationID][id] = handler
	backlog := cloneMessages(s.messages[conversationID])
	s.mu.Unlock()

	for _, msg := range backlog {
		handler(msg)
	}

	return subscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.msgSubs[conversationID], id)
		if len(s.msgSubs[conversationID]) == 0 {
			delete(s.msgSubs, conversationID)
		}
	}), nil
}

func (s *Store) SubscribeDirectory(_ context.Context, ownerID string, handler conversation.DirectoryHandler) (conversation.Subscription, error) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.dirSubs[ownerID] == nil {
		s.dirSubs[ownerID] = make(map[int]conversation.DirectoryHandler)
	}
	s.dirSubs[ownerID][id] = handler
	snapshot := s.summariesLocked(ownerID)
	s.mu.Unlock()

	handler(snapshot)

	return subscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.dirSubs[ownerID], id)
		if len(s.dirSubs[ownerID]) == 0 {
			delete(s.dirSubs, ownerID)
		}
	}), nil
}

// notifyDirectory pushes a fresh directory to the owner's watchers. Caller holds deliverMu.
func (s *Store) notifyDirectory(ownerID string) {
	s.mu.RLock()
	watchers := s.dirSubs[ownerID]
	if len(watchers) == 0 {
		s.mu.RUnlock()
		return
	}
	handlers := make([]conversation.DirectoryHandler, 0, len(watchers))
	for _, h := range watchers {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()

	for _, h := range handlers {
		s.mu.RLock()
		snapshot := s.summariesLocked(ownerID)
		s.mu.RUnlock()
		h(snapshot)
	}
}

func (s *Store) ownedLocked(ctx context.Context, ownerID, id string) (*conversation.Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"conversation not found", nil).WithContext("conversation_id", id)
	}
	return conv, nil
}

func (s *Store) summariesLocked(ownerID string) []*conversation.Summary {
	out := make([]*conversation.Summary, 0)
	for _, conv := range s.conversations {
		if conv.OwnerID != ownerID {
			continue
		}
		summary := &conversation.Summary{Conversation: *conv}
		if msgs := s.messages[conv.ID]; len(msgs) > 0 {
			last := *msgs[len(msgs)-1]
			summary.LastMessage = &last
			summary.MessageCount = len(msgs)
		}
		out = append(out, summary)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func collect(handlers map[int]conversation.MessageHandler) []conversation.MessageHandler {
	ids := make([]int, 0, len(handlers))
	for id := range handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]conversation.MessageHandler, 0, len(ids))
	for _, id := range ids {
		out = append(out, handlers[id])
	}
	return out
}

func cloneMessages(in []*conversation.Message) []*conversation.Message {
	out := make([]*conversation.Message, 0, len(in))
	for _, msg := range in {
		cp := *msg
		out = append(out, &cp)
	}
	return out
}

type subscription func()

func (f subscription) Unsubscribe() { f() }

var _ conversation.Store = (*Store)(nil)
