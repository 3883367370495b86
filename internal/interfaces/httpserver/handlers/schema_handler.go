package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat/internal/infrastructure/responder"
)

// SchemaHandler publishes the responder webhook contract.
type SchemaHandler struct{}

// Get handles GET /v1/responder/schema
func (SchemaHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, responder.ContractSchema())
}
