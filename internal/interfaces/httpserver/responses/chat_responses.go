package responses

import (
	"time"

	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/interaction"
)

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummaryResponse is a directory row.
type SummaryResponse struct {
	ConversationResponse
	LastMessage  *MessageResponse `json:"last_message,omitempty"`
	MessageCount int              `json:"message_count"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID             string    `json:"id"`
	Object         string    `json:"object"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListResponse wraps list payloads.
type ListResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

// SendMessageResponse is the persisted exchange.
type SendMessageResponse struct {
	UserMessage      *MessageResponse `json:"user_message"`
	AssistantMessage *MessageResponse `json:"assistant_message,omitempty"`
}

// StateResponse reports whether input is currently gated.
type StateResponse struct {
	ConversationID string `json:"conversation_id"`
	State          string `json:"state"`
}

// SignUpResponse tells the client what to show after sign-up.
type SignUpResponse struct {
	VerificationSent bool          `json:"verification_sent"`
	Resent           bool          `json:"resent"`
	Session          *auth.Session `json:"session,omitempty"`
}

// MapConversation converts a domain conversation.
func MapConversation(c *conversation.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		Object:    "conversation",
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// MapMessage converts a domain message; nil stays nil.
func MapMessage(m *conversation.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:             m.ID,
		Object:         "message",
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func MapSummaries(summaries []*conversation.Summary) ListResponse[SummaryResponse] {
	out := ListResponse[SummaryResponse]{Object: "list", Data: make([]SummaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		out.Data = append(out.Data, SummaryResponse{
			ConversationResponse: MapConversation(&s.Conversation),
			LastMessage:          MapMessage(s.LastMessage),
			MessageCount:         s.MessageCount,
		})
	}
	return out
}

func MapMessages(messages []*conversation.Message) ListResponse[*MessageResponse] {
	out := ListResponse[*MessageResponse]{Object: "list", Data: make([]*MessageResponse, 0, len(messages))}
	for _, m := range messages {
		out.Data = append(out.Data, MapMessage(m))
	}
	return out
}

func MapSendResult(r *interaction.SendMessageResult) SendMessageResponse {
	if r == nil {
		return SendMessageResponse{}
	}
	return SendMessageResponse{
		UserMessage:      MapMessage(r.UserMessage),
		AssistantMessage: MapMessage(r.AssistantMessage),
	}
}

func MapSignUp(r *auth.SignUpResult) SignUpResponse {
	return SignUpResponse{VerificationSent: r.VerificationSent, Resent: r.Resent, Session: r.Session}
}

// SendFailureResponse reports a failed exchange whose user message was kept.
type SendFailureResponse struct {
	ErrorResponse
	UserMessage *MessageResponse `json:"user_message,omitempty"`
}
