package graphql

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/retry"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// Store implements conversation.Store against the hosted GraphQL backend.
type Store struct {
	client      *client
	wsURL       string
	role        string
	resubscribe retry.Policy
	dialTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewStore builds a store. Subscriptions dial cfg.WSURL.
func NewStore(cfg Config, log zerolog.Logger) *Store {
	log = log.With().Str("component", "graphql-store").Logger()
	return &Store{
		client:      newClient(cfg, log),
		wsURL:       cfg.WSURL,
		role:        cfg.Role,
		resubscribe: retry.ResubscribePolicy(),
		dialTimeout: 30 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

type chatRow struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	UserID            string    `json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	MessagesAggregate *struct {
		Aggregate struct {
			Count int `json:"count"`
		} `json:"aggregate"`
	} `json:"messages_aggregate,omitempty"`
	Messages []messageRow `json:"messages,omitempty"`
}

type messageRow struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (r chatRow) toConversation() *conversation.Conversation {
	return &conversation.Conversation{
		ID:        r.ID,
		Title:     r.Title,
		OwnerID:   r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r chatRow) toSummary() *conversation.Summary {
	s := &conversation.Summary{Conversation: *r.toConversation()}
	if r.MessagesAggregate != nil {
		s.MessageCount = r.MessagesAggregate.Aggregate.Count
	}
	if len(r.Messages) > 0 {
		s.LastMessage = r.Messages[0].toMessage()
	}
	return s
}

func (r messageRow) toMessage() *conversation.Message {
	return &conversation.Message{
		ID:             r.ID,
		ConversationID: r.ChatID,
		Role:           conversation.Role(r.Role),
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}
}

func toSummaries(rows []chatRow) []*conversation.Summary {
	out := make([]*conversation.Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSummary())
	}
	return out
}

func toMessages(rows []messageRow) []*conversation.Message {
	out := make([]*conversation.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toMessage())
	}
	return out
}

func notFound(ctx context.Context, id string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"conversation not found", nil).WithContext("conversation_id", id)
}

func (s *Store) Create(ctx context.Context, conv *conversation.Conversation) error {
	if conv.OwnerID == "" {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonRejected, "conversation owner is required", nil)
	}
	now := s.now()
	var out struct {
		Chat *chatRow `json:"insert_chats_one"`
	}
	err := s.client.do(ctx, "create", insertChatMutation, map[string]any{
		"object": map[string]any{
			"id":         uuid.NewString(),
			"title":      conv.Title,
			"user_id":    conv.OwnerID,
			"created_at": now,
			"updated_at": now,
		},
	}, &out)
	if err != nil {
		return err
	}
	if out.Chat == nil {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonDenied, "conversation insert returned no row", nil)
	}
	*conv = *out.Chat.toConversation()
	return nil
}

func (s *Store) Get(ctx context.Context, ownerID, id string) (*conversation.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(ctx, id)
	}
	var out struct {
		Chats []chatRow `json:"chats"`
	}
	if err := s.client.do(ctx, "get", getChatQuery, map[string]any{"id": id, "owner": ownerID}, &out); err != nil {
		return nil, err
	}
	if len(out.Chats) == 0 {
		return nil, notFound(ctx, id)
	}
	return out.Chats[0].toConversation(), nil
}

func (s *Store) Rename(ctx context.Context, ownerID, id, title string) (*conversation.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(ctx, id)
	}
	var out struct {
		Update struct {
			Returning []chatRow `json:"returning"`
		} `json:"update_chats"`
	}
	err := s.client.do(ctx, "rename", renameChatMutation, map[string]any{
		"id": id, "owner": ownerID, "title": title, "now": s.now(),
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Update.Returning) == 0 {
		return nil, notFound(ctx, id)
	}
	return out.Update.Returning[0].toConversation(), nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	var out struct {
		Chats struct {
			AffectedRows int `json:"affected_rows"`
		} `json:"delete_chats"`
	}
	if err := s.client.do(ctx, "delete", deleteChatMutation, map[string]any{"id": id, "owner": ownerID}, &out); err != nil {
		return err
	}
	if out.Chats.AffectedRows == 0 {
		return notFound(ctx, id)
	}
	return nil
}

func (s *Store) ListSummaries(ctx context.Context, ownerID string) ([]*conversation.Summary, error) {
	var out struct {
		Chats []chatRow `json:"chats"`
	}
	if err := s.client.do(ctx, "list_summaries", listChatsQuery, map[string]any{"owner": ownerID}, &out); err != nil {
		return nil, err
	}
	return toSummaries(out.Chats), nil
}

func (s *Store) Append(ctx context.Context, ownerID string, msg *conversation.Message) error {
	if !msg.Role.Valid() || msg.Content == "" {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonRejected, "message requires a role and content", nil)
	}
	if _, err := s.Get(ctx, ownerID, msg.ConversationID); err != nil {
		return err
	}

	now := s.now()
	var out struct {
		Message *messageRow `json:"insert_messages_one"`
	}
	err := s.client.do(ctx, "append", appendMessageMutation, map[string]any{
		"message": map[string]any{
			"id":         uuid.NewString(),
			"chat_id":    msg.ConversationID,
			"role":       string(msg.Role),
			"content":    msg.Content,
			"created_at": now,
		},
		"chatId": msg.ConversationID,
		"now":    now,
	}, &out)
	if err != nil {
		return err
	}
	if out.Message == nil {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonDenied, "message insert returned no row", nil)
	}
	*msg = *out.Message.toMessage()
	return nil
}

func (s *Store) ListMessages(ctx context.Context, ownerID, conversationID string) ([]*conversation.Message, error) {
	if _, err := s.Get(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	var out struct {
		Messages []messageRow `json:"messages"`
	}
	if err := s.client.do(ctx, "list_messages", listMessagesQuery, map[string]any{"chatId": conversationID}, &out); err != nil {
		return nil, err
	}
	return toMessages(out.Messages), nil
}

var _ conversation.Store = (*Store)(nil)
