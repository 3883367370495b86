package conversation

import "context"

// Repository persists conversations. Implementations enforce ownership either
// themselves or through the backing store's row level policy.
type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	Get(ctx context.Context, ownerID, id string) (*Conversation, error)
	Rename(ctx context.Context, ownerID, id, title string) (*Conversation, error)
	Delete(ctx context.Context, ownerID, id string) error
	ListSummaries(ctx context.Context, ownerID string) ([]*Summary, error)
}

// MessageRepository persists messages.
type MessageRepository interface {
	// Append inserts the message and bumps the parent conversation's UpdatedAt
	// in the same backend write. ID and CreatedAt are assigned by the store.
	Append(ctx context.Context, ownerID string, msg *Message) error
	ListMessages(ctx context.Context, ownerID, conversationID string) ([]*Message, error)
}

// MessageHandler receives messages of one conversation in created_at order.
type MessageHandler func(msg *Message)

// DirectoryHandler receives the full ordered directory after every change.
type DirectoryHandler func(summaries []*Summary)

// Subscription is a live registration against a Feed.
type Subscription interface {
	Unsubscribe()
}

// Feed delivers store changes without polling. A new message subscription first
// replays the existing log, then every appended message exactly once.
type Feed interface {
	SubscribeMessages(ctx context.Context, ownerID, conversationID string, handler MessageHandler) (Subscription, error)
	SubscribeDirectory(ctx context.Context, ownerID string, handler DirectoryHandler) (Subscription, error)
}

// Store bundles everything a storage backend provides.
type Store interface {
	Repository
	MessageRepository
	Feed
}
