//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/janhq/jan-chat/internal/config"
	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/domain/interaction"
	infraauth "github.com/janhq/jan-chat/internal/infrastructure/auth"
	"github.com/janhq/jan-chat/internal/infrastructure/logger"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/handlers"
)

var chatSet = wire.NewSet(
	newSanitizer,
	newStore,
	newStateBackend,
	newResponder,
	newInteractionService,
	wire.Bind(new(interaction.Service), new(*interaction.ServiceImpl)),
	newAuthService,
	wire.Bind(new(handlers.AuthService), new(*auth.Service)),
)

// BuildApplication assembles the chat gateway with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		infraauth.NewValidator,
		chatSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil, nil
}
