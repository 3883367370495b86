package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.GET("/conversations", handler.List)
	router.POST("/conversations", handler.Create)
	router.GET("/conversations/stream", handler.Stream)
	router.PATCH("/conversations/:id", handler.Rename)
	router.DELETE("/conversations/:id", handler.Delete)
}

func registerMessageRoutes(router gin.IRoutes, handler *handlers.MessageHandler) {
	// Message routes nested under conversations
	router.GET("/conversations/:id/messages", handler.List)
	router.POST("/conversations/:id/messages", handler.Send)
	router.GET("/conversations/:id/messages/stream", handler.Stream)
	router.GET("/conversations/:id/state", handler.State)
}
