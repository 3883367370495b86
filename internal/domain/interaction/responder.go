package interaction

import "context"

// ResponderRequest is what the AI responder receives for one user message.
type ResponderRequest struct {
	ConversationID string
	Message        string
}

// Responder produces the assistant reply for a user message. Implementations
// return typed AI response errors and must honour ctx cancellation.
type Responder interface {
	Respond(ctx context.Context, req ResponderRequest) (string, error)
}
