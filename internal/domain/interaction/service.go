package interaction

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
	"github.com/janhq/jan-chat/pkg/telemetry"
)

// DefaultResponderTimeout bounds the AI responder call when none is configured.
const DefaultResponderTimeout = 30 * time.Second

// Unsubscribe cancels a live registration. Calling it more than once is a no-op.
type Unsubscribe func()

// Service is the interaction loop exposed to transports.
type Service interface {
	CreateConversation(ctx context.Context, ownerID, title string) (*conversation.Conversation, error)
	SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error)
	RenameConversation(ctx context.Context, ownerID, conversationID, title string) (*conversation.Conversation, error)
	DeleteConversation(ctx context.Context, ownerID, conversationID string) error
	ListConversations(ctx context.Context, ownerID string) ([]*conversation.Summary, error)
	ListMessages(ctx context.Context, ownerID, conversationID string) ([]*conversation.Message, error)
	Subscribe(ctx context.Context, ownerID, conversationID string, onMessage conversation.MessageHandler) (Unsubscribe, error)
	WatchConversations(ctx context.Context, ownerID string, onChange conversation.DirectoryHandler) (Unsubscribe, error)
	WatchState(ownerID string, onChange func(StateChange)) Unsubscribe
	State(ctx context.Context, ownerID, conversationID string) (State, error)
}

// SendMessageInput carries one user submission.
type SendMessageInput struct {
	OwnerID        string
	ConversationID string
	Text           string
}

// SendMessageResult holds the persisted exchange. On an AI response failure the
// result is returned alongside the error with only UserMessage set.
type SendMessageResult struct {
	UserMessage      *conversation.Message `json:"user_message"`
	AssistantMessage *conversation.Message `json:"assistant_message,omitempty"`
}

// Options tunes the interaction loop.
type Options struct {
	Scope            Scope
	ResponderTimeout time.Duration
	// StateBus, when set, carries state changes to watchers on other replicas.
	StateBus StateBus
}

// ServiceImpl provides the domain implementation.
type ServiceImpl struct {
	conversations conversation.Repository
	messages      conversation.MessageRepository
	feed          conversation.Feed
	responder     Responder
	tracker       Tracker
	scope         Scope
	timeout       time.Duration
	hub           *stateHub
	bus           StateBus
	sanitizer     *telemetry.Sanitizer
	log           zerolog.Logger
}

// NewService wires dependencies.
func NewService(
	store conversation.Store,
	responder Responder,
	tracker Tracker,
	opts Options,
	sanitizer *telemetry.Sanitizer,
	log zerolog.Logger,
) *ServiceImpl {
	if opts.Scope == "" {
		opts.Scope = ScopeConversation
	}
	if opts.ResponderTimeout <= 0 {
		opts.ResponderTimeout = DefaultResponderTimeout
	}
	if sanitizer == nil {
		sanitizer = telemetry.NewSanitizer(telemetry.PIILevelNone, "")
	}
	svc := &ServiceImpl{
		conversations: store,
		messages:      store,
		feed:          store,
		responder:     responder,
		tracker:       tracker,
		scope:         opts.Scope,
		timeout:       opts.ResponderTimeout,
		hub:           newStateHub(),
		bus:           opts.StateBus,
		sanitizer:     sanitizer,
		log:           log.With().Str("component", "interaction-service").Logger(),
	}
	if svc.bus != nil {
		svc.bus.Listen(svc.hub.publish)
	}
	return svc
}

// CreateConversation inserts a conversation owned by the caller.
func (s *ServiceImpl) CreateConversation(ctx context.Context, ownerID, title string) (*conversation.Conversation, error) {
	conv := &conversation.Conversation{
		Title:   conversation.NormalizeTitle(title),
		OwnerID: ownerID,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, persistenceError(ctx, err, "create conversation")
	}
	s.log.Debug().Str("conversation_id", conv.ID).Msg("conversation created")
	return conv, nil
}

// SendMessage persists the user message, asks the responder for a reply and
// persists it. The state for the scope key is released on every path.
func (s *ServiceImpl) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			platformerrors.ReasonEmptyInput, "message text is empty", nil)
	}

	// The exchange finishes even if the caller goes away; live subscribers see the result.
	ctx = context.WithoutCancel(ctx)

	key := s.scope.Key(input.OwnerID, input.ConversationID)
	acquired, err := s.tracker.TryAcquire(ctx, key)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "acquire interaction state")
	}
	if !acquired {
		return nil, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			platformerrors.ReasonBusy, "another message is still awaiting its reply", nil).
			WithContext("conversation_id", input.ConversationID)
	}
	s.publishState(ctx, input, StateSending)
	defer func() {
		if err := s.tracker.Release(ctx, key); err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("release interaction state")
		}
		s.publishState(ctx, input, StateIdle)
	}()

	userMsg := &conversation.Message{
		ConversationID: input.ConversationID,
		Role:           conversation.RoleUser,
		Content:        text,
	}
	if err := s.messages.Append(ctx, input.OwnerID, userMsg); err != nil {
		return nil, persistenceError(ctx, err, "insert user message")
	}
	result := &SendMessageResult{UserMessage: userMsg}

	s.log.Debug().
		Str("conversation_id", input.ConversationID).
		Str("content", s.sanitizer.Content(text)).
		Msg("user message stored, calling responder")

	reply, err := s.callResponder(ctx, input.ConversationID, text)
	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", input.ConversationID).Msg("responder failed")
		return result, err
	}

	assistantMsg := &conversation.Message{
		ConversationID: input.ConversationID,
		Role:           conversation.RoleAssistant,
		Content:        reply,
	}
	if err := s.messages.Append(ctx, input.OwnerID, assistantMsg); err != nil {
		return result, persistenceError(ctx, err, "insert assistant message")
	}
	result.AssistantMessage = assistantMsg

	s.log.Debug().
		Str("conversation_id", input.ConversationID).
		Str("content", s.sanitizer.Content(reply)).
		Msg("assistant reply stored")
	return result, nil
}

func (s *ServiceImpl) callResponder(ctx context.Context, conversationID, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.responder.Respond(callCtx, ResponderRequest{ConversationID: conversationID, Message: text})
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeAIResponse) {
			return "", err
		}
		reason := platformerrors.ReasonUnreachable
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = platformerrors.ReasonTimeout
		}
		return "", platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeAIResponse,
			reason, "AI responder call failed", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeAIResponse,
			platformerrors.ReasonEmptyReply, "AI responder returned an empty reply", nil)
	}
	return reply, nil
}

// RenameConversation changes the title of an owned conversation.
func (s *ServiceImpl) RenameConversation(ctx context.Context, ownerID, conversationID, title string) (*conversation.Conversation, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			platformerrors.ReasonInvalidTitle, "title must not be empty", nil)
	}
	conv, err := s.conversations.Rename(ctx, ownerID, conversationID, trimmed)
	if err != nil {
		return nil, persistenceError(ctx, err, "rename conversation")
	}
	return conv, nil
}

// DeleteConversation removes an owned conversation and its messages.
func (s *ServiceImpl) DeleteConversation(ctx context.Context, ownerID, conversationID string) error {
	if err := s.conversations.Delete(ctx, ownerID, conversationID); err != nil {
		return persistenceError(ctx, err, "delete conversation")
	}
	return nil
}

// ListConversations returns the directory, newest-updated first.
func (s *ServiceImpl) ListConversations(ctx context.Context, ownerID string) ([]*conversation.Summary, error) {
	summaries, err := s.conversations.ListSummaries(ctx, ownerID)
	if err != nil {
		return nil, persistenceError(ctx, err, "list conversations")
	}
	sortSummaries(summaries)
	return summaries, nil
}

// ListMessages returns the current log of a conversation.
func (s *ServiceImpl) ListMessages(ctx context.Context, ownerID, conversationID string) ([]*conversation.Message, error) {
	messages, err := s.messages.ListMessages(ctx, ownerID, conversationID)
	if err != nil {
		return nil, persistenceError(ctx, err, "list messages")
	}
	return messages, nil
}

// Subscribe registers onMessage for the conversation's live log.
func (s *ServiceImpl) Subscribe(ctx context.Context, ownerID, conversationID string, onMessage conversation.MessageHandler) (Unsubscribe, error) {
	if _, err := s.conversations.Get(ctx, ownerID, conversationID); err != nil {
		return nil, persistenceError(ctx, err, "load conversation")
	}
	sub, err := s.feed.SubscribeMessages(ctx, ownerID, conversationID, onMessage)
	if err != nil {
		return nil, persistenceError(ctx, err, "subscribe messages")
	}
	return once(sub.Unsubscribe), nil
}

// WatchConversations registers onChange for the owner's live directory.
func (s *ServiceImpl) WatchConversations(ctx context.Context, ownerID string, onChange conversation.DirectoryHandler) (Unsubscribe, error) {
	sub, err := s.feed.SubscribeDirectory(ctx, ownerID, func(summaries []*conversation.Summary) {
		sortSummaries(summaries)
		onChange(summaries)
	})
	if err != nil {
		return nil, persistenceError(ctx, err, "subscribe conversations")
	}
	return once(sub.Unsubscribe), nil
}

// WatchState registers onChange for state transitions of the owner's sends.
func (s *ServiceImpl) WatchState(ownerID string, onChange func(StateChange)) Unsubscribe {
	return once(s.hub.watch(ownerID, onChange))
}

// State reports the interaction state that gates input for the conversation.
func (s *ServiceImpl) State(ctx context.Context, ownerID, conversationID string) (State, error) {
	state, err := s.tracker.Get(ctx, s.scope.Key(ownerID, conversationID))
	if err != nil {
		return StateIdle, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "read interaction state")
	}
	return state, nil
}

// publishState falls back to local watchers when the bus rejects the change.
func (s *ServiceImpl) publishState(ctx context.Context, input SendMessageInput, state State) {
	change := StateChange{OwnerID: input.OwnerID, ConversationID: input.ConversationID, State: state}
	if s.bus != nil {
		err := s.bus.Publish(ctx, change)
		if err == nil {
			return
		}
		s.log.Warn().Err(err).Str("conversation_id", input.ConversationID).Msg("publish state change")
	}
	s.hub.publish(change)
}

func persistenceError(ctx context.Context, err error, message string) error {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, message)
	}
	return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypePersistence,
		platformerrors.ReasonUnavailable, message, err)
}

func sortSummaries(summaries []*conversation.Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
}

func once(fn func()) Unsubscribe {
	var o sync.Once
	return func() { o.Do(fn) }
}

var _ Service = (*ServiceImpl)(nil)
