package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/infrastructure/memstore"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

type echoResponder struct{}

func (echoResponder) Respond(_ context.Context, req interaction.ResponderRequest) (string, error) {
	return "echo: " + req.Message, nil
}

func TestMessageHandler_Send(t *testing.T) {
	mock := &MockService{
		SendMessageFunc: func(ctx context.Context, input interaction.SendMessageInput) (*interaction.SendMessageResult, error) {
			assert.Equal(t, testOwner, input.OwnerID)
			assert.Equal(t, "c1", input.ConversationID)
			return &interaction.SendMessageResult{
				UserMessage:      &conversation.Message{ID: "m1", ConversationID: "c1", Role: conversation.RoleUser, Content: input.Text},
				AssistantMessage: &conversation.Message{ID: "m2", ConversationID: "c1", Role: conversation.RoleAssistant, Content: "Hi there!"},
			}, nil
		},
	}

	w := doJSON(newRouter(mock, testOwner), http.MethodPost, "/v1/conversations/c1/messages", map[string]string{"text": "Hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Hello", body["user_message"].(map[string]any)["content"])
	assert.Equal(t, "assistant", body["assistant_message"].(map[string]any)["role"])
}

func TestMessageHandler_SendFailures(t *testing.T) {
	ctx := context.Background()
	userMessage := &conversation.Message{ID: "m1", ConversationID: "c1", Role: conversation.RoleUser, Content: "Hello"}

	tests := []struct {
		name     string
		result   *interaction.SendMessageResult
		err      error
		status   int
		reason   string
		keptUser bool
	}{
		{
			name:   "empty input",
			err:    platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, platformerrors.ReasonEmptyInput, "message is empty", nil),
			status: http.StatusBadRequest,
			reason: "empty_input",
		},
		{
			name:   "busy",
			err:    platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, platformerrors.ReasonBusy, "busy", nil),
			status: http.StatusConflict,
			reason: "interaction_in_progress",
		},
		{
			name:     "responder timeout keeps user message",
			result:   &interaction.SendMessageResult{UserMessage: userMessage},
			err:      platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeAIResponse, platformerrors.ReasonTimeout, "timed out", nil),
			status:   http.StatusGatewayTimeout,
			reason:   "timeout",
			keptUser: true,
		},
		{
			name:     "responder bad status",
			result:   &interaction.SendMessageResult{UserMessage: userMessage},
			err:      platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeAIResponse, platformerrors.ReasonBadStatus, "500", nil),
			status:   http.StatusBadGateway,
			reason:   "bad_status",
			keptUser: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockService{
				SendMessageFunc: func(context.Context, interaction.SendMessageInput) (*interaction.SendMessageResult, error) {
					return tt.result, tt.err
				},
			}
			w := doJSON(newRouter(mock, testOwner), http.MethodPost, "/v1/conversations/c1/messages", map[string]string{"text": "Hello"})
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.reason, body["reason"])
			if tt.keptUser {
				assert.Equal(t, "m1", body["user_message"].(map[string]any)["id"])
			} else {
				assert.NotContains(t, body, "user_message")
			}
		})
	}
}

func TestMessageHandler_State(t *testing.T) {
	mock := &MockService{
		StateFunc: func(context.Context, string, string) (interaction.State, error) {
			return interaction.StateSending, nil
		},
	}
	w := doJSON(newRouter(mock, testOwner), http.MethodGet, "/v1/conversations/c1/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sending", decode(t, w)["state"])
}

func TestMessageHandler_StreamReplaysThenFollows(t *testing.T) {
	ctx := context.Background()
	service := interaction.NewService(memstore.New(), echoResponder{}, interaction.NewMemoryTracker(), interaction.Options{}, nil, zerolog.Nop())
	conv, err := service.CreateConversation(ctx, testOwner, "Trip")
	require.NoError(t, err)
	_, err = service.SendMessage(ctx, interaction.SendMessageInput{OwnerID: testOwner, ConversationID: conv.ID, Text: "Hello"})
	require.NoError(t, err)

	server := httptest.NewServer(newRouter(service, testOwner))
	defer server.Close()

	events, cancel := sseReader(t, server.URL+"/v1/conversations/"+conv.ID+"/messages/stream")
	defer cancel()

	assert.Contains(t, next(t, events), `"content":"Hello"`)
	assert.Contains(t, next(t, events), `"content":"echo: Hello"`)
	assert.Contains(t, next(t, events), `"state":"idle"`)

	_, err = service.SendMessage(ctx, interaction.SendMessageInput{OwnerID: testOwner, ConversationID: conv.ID, Text: "Again"})
	require.NoError(t, err)

	var messages []string
	for len(messages) < 2 {
		ev := next(t, events)
		if strings.HasPrefix(ev, "message ") {
			messages = append(messages, ev)
		}
	}
	assert.Contains(t, messages[0], `"content":"Again"`)
	assert.Contains(t, messages[1], `"content":"echo: Again"`)
}

func TestMessageHandler_StreamUnknownConversation(t *testing.T) {
	service := interaction.NewService(memstore.New(), echoResponder{}, interaction.NewMemoryTracker(), interaction.Options{}, nil, zerolog.Nop())
	w := doJSON(newRouter(service, testOwner), http.MethodGet, "/v1/conversations/missing/messages/stream", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["type"])
}
