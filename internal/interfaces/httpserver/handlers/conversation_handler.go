package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domainauth "github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/infrastructure/metrics"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/requests"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// ConversationHandler serves the conversation directory.
type ConversationHandler struct {
	service interaction.Service
	log     zerolog.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(service interaction.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log.With().Str("handler", "conversation").Logger(),
	}
}

// ownerID returns the principal resolved by the auth middleware.
func ownerID(c *gin.Context) (string, bool) {
	owner, ok := domainauth.PrincipalFromContext(c.Request.Context())
	if !ok || owner == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, platformerrors.ReasonInvalidToken, "missing principal")
		return "", false
	}
	return owner, true
}

// List handles GET /v1/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	summaries, err := h.service.ListConversations(c.Request.Context(), owner)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}
	c.JSON(http.StatusOK, responses.MapSummaries(summaries))
}

// Create handles POST /v1/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req requests.CreateConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, platformerrors.ReasonInvalidTitle, "invalid request body: "+err.Error())
			return
		}
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), owner, req.Title)
	if err != nil {
		responses.HandleError(c, err, "failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, responses.MapConversation(conv))
}

// Rename handles PATCH /v1/conversations/:id
func (h *ConversationHandler) Rename(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req requests.RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, platformerrors.ReasonInvalidTitle, "invalid request body: "+err.Error())
		return
	}

	conv, err := h.service.RenameConversation(c.Request.Context(), owner, c.Param("id"), req.Title)
	if err != nil {
		responses.HandleError(c, err, "failed to rename conversation")
		return
	}
	c.JSON(http.StatusOK, responses.MapConversation(conv))
}

// Delete handles DELETE /v1/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteConversation(c.Request.Context(), owner, c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream handles GET /v1/conversations/stream. Every change to the caller's
// directory produces a full "conversations" snapshot event.
func (h *ConversationHandler) Stream(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	queue := newEventQueue()
	unsubscribe, err := h.service.WatchConversations(c.Request.Context(), owner, func(summaries []*conversation.Summary) {
		queue.push(streamEvent{name: "conversations", data: responses.MapSummaries(summaries)})
	})
	if err != nil {
		responses.HandleError(c, err, "failed to watch conversations")
		return
	}
	defer unsubscribe()
	defer metrics.TrackSubscription("directory")()

	h.log.Debug().Str("owner_id", owner).Msg("directory stream opened")
	serveStream(c, queue, nil)
}
