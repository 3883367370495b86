package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat/internal/interfaces/httpserver/handlers"
	v1 "github.com/janhq/jan-chat/internal/interfaces/httpserver/routes/v1"
)

// Provider coordinates all route registrations.
type Provider struct {
	V1 *v1.Routes
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{
		V1: v1.NewRoutes(handlerProvider),
	}
}

// RegisterPublic attaches routes that are reachable without a principal.
func (p *Provider) RegisterPublic(engine *gin.Engine) {
	p.V1.RegisterPublic(engine)
}

// Register attaches the protected routes behind the given middleware.
func (p *Provider) Register(engine *gin.Engine, protect ...gin.HandlerFunc) {
	p.V1.Register(engine, protect...)
}
