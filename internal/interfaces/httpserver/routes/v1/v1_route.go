package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// RegisterPublic attaches the v1 routes that need no principal.
func (r *Routes) RegisterPublic(engine *gin.Engine) {
	group := engine.Group("/v1")
	group.GET("/responder/schema", r.handlers.Schema.Get)
	if r.handlers.Auth != nil {
		registerAuthRoutes(group, r.handlers.Auth)
	}
}

// Register attaches the protected v1 routes under /v1 prefix.
func (r *Routes) Register(engine *gin.Engine, protect ...gin.HandlerFunc) {
	group := engine.Group("/v1", protect...)
	registerConversationRoutes(group, r.handlers.Conversation)
	registerMessageRoutes(group, r.handlers.Message)
}
