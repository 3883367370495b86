package entities

import (
	"time"

	"github.com/janhq/jan-chat/internal/domain/conversation"
)

// Chat is the conversation row.
type Chat struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:varchar(128);not null;index:idx_chat_user_updated,priority:1"`
	Title     string    `gorm:"type:varchar(256);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index:idx_chat_user_updated,priority:2,sort:desc"`

	Messages []ChatMessage `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

// ChatMessage is one stored turn.
type ChatMessage struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	ChatID    string    `gorm:"type:uuid;not null;index:idx_chat_message_chat_created,priority:1"`
	Role      string    `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_chat_message_chat_created,priority:2"`
}

func NewSchemaChat(c *conversation.Conversation) *Chat {
	return &Chat{
		ID:        c.ID,
		UserID:    c.OwnerID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (c *Chat) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		OwnerID:   c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func NewSchemaChatMessage(m *conversation.Message) *ChatMessage {
	return &ChatMessage{
		ID:        m.ID,
		ChatID:    m.ConversationID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func (m *ChatMessage) EtoD() *conversation.Message {
	return &conversation.Message{
		ID:             m.ID,
		ConversationID: m.ChatID,
		Role:           conversation.Role(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}
