package conversation

import (
	"strings"
	"time"
)

// DefaultTitle is used when a conversation is created without a title.
const DefaultTitle = "New Chat"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the two known authors.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Conversation is a titled thread owned by exactly one principal.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one immutable turn in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary is a conversation with its denormalized preview, as shown in the directory.
type Summary struct {
	Conversation
	LastMessage  *Message `json:"last_message,omitempty"`
	MessageCount int      `json:"message_count"`
}

// NormalizeTitle trims the title and falls back to DefaultTitle when empty.
func NormalizeTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return DefaultTitle
	}
	return trimmed
}
