package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/infrastructure/metrics"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/requests"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

const stateCheckEvent = "state-check"

// MessageHandler serves the message log of one conversation.
type MessageHandler struct {
	service interaction.Service
	log     zerolog.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(service interaction.Service, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		log:     log.With().Str("handler", "message").Logger(),
	}
}

// List handles GET /v1/conversations/:id/messages
func (h *MessageHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	messages, err := h.service.ListMessages(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}
	c.JSON(http.StatusOK, responses.MapMessages(messages))
}

// Send handles POST /v1/conversations/:id/messages
func (h *MessageHandler) Send(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordSend("validation")
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, platformerrors.ReasonEmptyInput, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.SendMessage(c.Request.Context(), interaction.SendMessageInput{
		OwnerID:        owner,
		ConversationID: c.Param("id"),
		Text:           req.Text,
	})
	metrics.RecordSend(sendOutcome(err))
	if err != nil {
		var pe *platformerrors.PlatformError
		if result != nil && result.UserMessage != nil && errors.As(err, &pe) {
			// The user message is stored even though the exchange failed.
			_ = c.Error(err)
			c.AbortWithStatusJSON(platformerrors.HTTPStatus(pe), responses.SendFailureResponse{
				ErrorResponse: responses.FromError(pe, "failed to get a response"),
				UserMessage:   responses.MapMessage(result.UserMessage),
			})
			return
		}
		responses.HandleError(c, err, "failed to send message")
		return
	}
	c.JSON(http.StatusCreated, responses.MapSendResult(result))
}

func sendOutcome(err error) string {
	var pe *platformerrors.PlatformError
	switch {
	case err == nil:
		return "ok"
	case !errors.As(err, &pe):
		return "error"
	case pe.GetReason() == platformerrors.ReasonBusy:
		return "busy"
	case pe.GetErrorType() == platformerrors.ErrorTypeValidation:
		return "validation"
	case pe.GetErrorType() == platformerrors.ErrorTypeNotFound:
		return "not_found"
	case pe.GetErrorType() == platformerrors.ErrorTypePersistence:
		return "persistence"
	case pe.GetErrorType() == platformerrors.ErrorTypeAIResponse:
		return "ai_response"
	default:
		return "error"
	}
}

// State handles GET /v1/conversations/:id/state
func (h *MessageHandler) State(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	state, err := h.service.State(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to read interaction state")
		return
	}
	c.JSON(http.StatusOK, responses.StateResponse{ConversationID: c.Param("id"), State: state.String()})
}

// Stream handles GET /v1/conversations/:id/messages/stream. The stored log is
// replayed as "message" events, followed by every new message exactly once.
// "state" events report whether input to this conversation is gated.
func (h *MessageHandler) Stream(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")
	ctx := c.Request.Context()

	queue := newEventQueue()
	unsubscribe, err := h.service.Subscribe(ctx, owner, conversationID, func(m *conversation.Message) {
		queue.push(streamEvent{name: "message", data: responses.MapMessage(m)})
	})
	if err != nil {
		responses.HandleError(c, err, "failed to subscribe to conversation")
		return
	}
	defer unsubscribe()

	// State changes are re-read by the writer so the scope rules stay in the service.
	stopState := h.service.WatchState(owner, func(interaction.StateChange) {
		queue.push(streamEvent{name: stateCheckEvent})
	})
	defer stopState()
	defer metrics.TrackSubscription("messages")()
	queue.push(streamEvent{name: stateCheckEvent})

	var last interaction.State
	serveStream(c, queue, func(ev streamEvent) (streamEvent, bool) {
		if ev.name != stateCheckEvent {
			return ev, true
		}
		state, err := h.service.State(ctx, owner, conversationID)
		if err != nil {
			h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("read interaction state")
			return ev, false
		}
		if state == last {
			return ev, false
		}
		last = state
		return streamEvent{
			name: "state",
			data: responses.StateResponse{ConversationID: conversationID, State: state.String()},
		}, true
	})
}
