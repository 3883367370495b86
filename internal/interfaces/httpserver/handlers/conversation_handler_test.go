package handlers_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/infrastructure/memstore"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

func TestConversationHandler_List(t *testing.T) {
	now := time.Now()
	mock := &MockService{
		ListConversationsFunc: func(ctx context.Context, ownerID string) ([]*conversation.Summary, error) {
			assert.Equal(t, testOwner, ownerID)
			return []*conversation.Summary{{
				Conversation: conversation.Conversation{ID: "c1", Title: "Trip", OwnerID: ownerID, UpdatedAt: now},
				LastMessage:  &conversation.Message{ID: "m1", ConversationID: "c1", Role: conversation.RoleAssistant, Content: "Hi"},
				MessageCount: 2,
			}}, nil
		},
	}

	w := doJSON(newRouter(mock, testOwner), http.MethodGet, "/v1/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "list", body["object"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "Trip", row["title"])
	assert.EqualValues(t, 2, row["message_count"])
	assert.Equal(t, "Hi", row["last_message"].(map[string]any)["content"])
}

func TestConversationHandler_MissingPrincipal(t *testing.T) {
	w := doJSON(newRouter(&MockService{}, ""), http.MethodGet, "/v1/conversations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_token", decode(t, w)["reason"])
}

func TestConversationHandler_CreateWithoutBodyUsesDefaultTitle(t *testing.T) {
	var gotTitle = "unset"
	mock := &MockService{
		CreateConversationFunc: func(ctx context.Context, ownerID, title string) (*conversation.Conversation, error) {
			gotTitle = title
			return &conversation.Conversation{ID: "c1", Title: conversation.DefaultTitle, OwnerID: ownerID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/conversations", nil)
	w := httptest.NewRecorder()
	newRouter(mock, testOwner).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, gotTitle)
	assert.Equal(t, conversation.DefaultTitle, decode(t, w)["title"])
}

func TestConversationHandler_RenameErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
		reason string
	}{
		{
			name:   "missing title",
			body:   map[string]string{},
			status: http.StatusBadRequest,
			reason: "invalid_title",
		},
		{
			name: "not found",
			body: map[string]string{"title": "New"},
			err: platformerrors.NewError(context.Background(), platformerrors.LayerDomain,
				platformerrors.ErrorTypeNotFound, "conversation not found", nil),
			status: http.StatusNotFound,
		},
		{
			name: "denied",
			body: map[string]string{"title": "New"},
			err: platformerrors.NewErrorWithReason(context.Background(), platformerrors.LayerRepository,
				platformerrors.ErrorTypePersistence, platformerrors.ReasonDenied, "permission denied", nil),
			status: http.StatusForbidden,
			reason: "denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockService{
				RenameConversationFunc: func(context.Context, string, string, string) (*conversation.Conversation, error) {
					return nil, tt.err
				},
			}
			w := doJSON(newRouter(mock, testOwner), http.MethodPatch, "/v1/conversations/c1", tt.body)
			assert.Equal(t, tt.status, w.Code)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, decode(t, w)["reason"])
			}
		})
	}
}

func TestConversationHandler_Delete(t *testing.T) {
	var deleted string
	mock := &MockService{
		DeleteConversationFunc: func(ctx context.Context, ownerID, conversationID string) error {
			deleted = conversationID
			return nil
		},
	}
	w := doJSON(newRouter(mock, testOwner), http.MethodDelete, "/v1/conversations/c9", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "c9", deleted)
}

// sseReader collects "event:" names from a live stream.
func sseReader(t *testing.T, url string) (<-chan string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		var event string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:") && event != "":
				lines <- event + " " + strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				event = ""
			}
		}
	}()
	return lines, cancel
}

func next(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return ""
	}
}

func TestConversationHandler_StreamSendsSnapshots(t *testing.T) {
	service := interaction.NewService(memstore.New(), &echoResponder{}, interaction.NewMemoryTracker(), interaction.Options{}, nil, zerolog.Nop())
	server := httptest.NewServer(newRouter(service, testOwner))
	defer server.Close()

	events, cancel := sseReader(t, server.URL+"/v1/conversations/stream")
	defer cancel()

	first := next(t, events)
	assert.True(t, strings.HasPrefix(first, "conversations "), first)
	assert.Contains(t, first, `"data":[]`)

	_, err := service.CreateConversation(context.Background(), testOwner, "Trip")
	require.NoError(t, err)

	second := next(t, events)
	assert.Contains(t, second, `"title":"Trip"`)
}
