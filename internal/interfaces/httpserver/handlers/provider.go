package handlers

import (
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/interaction"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Conversation *ConversationHandler
	Message      *MessageHandler
	Auth         *AuthHandler
	Schema       SchemaHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(service interaction.Service, authService AuthService, log zerolog.Logger) *Provider {
	return &Provider{
		Conversation: NewConversationHandler(service, log),
		Message:      NewMessageHandler(service, log),
		Auth:         NewAuthHandler(authService, log),
	}
}
