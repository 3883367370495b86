package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domainauth "github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/handlers"
)

const testOwner = "user-1"

func init() {
	gin.SetMode(gin.TestMode)
}

// MockService is a mock implementation of interaction.Service for testing.
type MockService struct {
	CreateConversationFunc func(ctx context.Context, ownerID, title string) (*conversation.Conversation, error)
	SendMessageFunc        func(ctx context.Context, input interaction.SendMessageInput) (*interaction.SendMessageResult, error)
	RenameConversationFunc func(ctx context.Context, ownerID, conversationID, title string) (*conversation.Conversation, error)
	DeleteConversationFunc func(ctx context.Context, ownerID, conversationID string) error
	ListConversationsFunc  func(ctx context.Context, ownerID string) ([]*conversation.Summary, error)
	ListMessagesFunc       func(ctx context.Context, ownerID, conversationID string) ([]*conversation.Message, error)
	StateFunc              func(ctx context.Context, ownerID, conversationID string) (interaction.State, error)
}

func (m *MockService) CreateConversation(ctx context.Context, ownerID, title string) (*conversation.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, ownerID, title)
	}
	return nil, nil
}

func (m *MockService) SendMessage(ctx context.Context, input interaction.SendMessageInput) (*interaction.SendMessageResult, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, input)
	}
	return nil, nil
}

func (m *MockService) RenameConversation(ctx context.Context, ownerID, conversationID, title string) (*conversation.Conversation, error) {
	if m.RenameConversationFunc != nil {
		return m.RenameConversationFunc(ctx, ownerID, conversationID, title)
	}
	return nil, nil
}

func (m *MockService) DeleteConversation(ctx context.Context, ownerID, conversationID string) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, ownerID, conversationID)
	}
	return nil
}

func (m *MockService) ListConversations(ctx context.Context, ownerID string) ([]*conversation.Summary, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *MockService) ListMessages(ctx context.Context, ownerID, conversationID string) ([]*conversation.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, ownerID, conversationID)
	}
	return nil, nil
}

func (m *MockService) Subscribe(context.Context, string, string, conversation.MessageHandler) (interaction.Unsubscribe, error) {
	return func() {}, nil
}

func (m *MockService) WatchConversations(context.Context, string, conversation.DirectoryHandler) (interaction.Unsubscribe, error) {
	return func() {}, nil
}

func (m *MockService) WatchState(string, func(interaction.StateChange)) interaction.Unsubscribe {
	return func() {}
}

func (m *MockService) State(ctx context.Context, ownerID, conversationID string) (interaction.State, error) {
	if m.StateFunc != nil {
		return m.StateFunc(ctx, ownerID, conversationID)
	}
	return interaction.StateIdle, nil
}

// withPrincipal stands in for the auth middleware.
func withPrincipal(owner string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if owner != "" {
			c.Request = c.Request.WithContext(domainauth.ContextWithPrincipal(c.Request.Context(), owner))
		}
		c.Next()
	}
}

func newRouter(service interaction.Service, owner string) *gin.Engine {
	conversations := handlers.NewConversationHandler(service, zerolog.Nop())
	messages := handlers.NewMessageHandler(service, zerolog.Nop())

	r := gin.New()
	r.Use(withPrincipal(owner))
	r.GET("/v1/conversations", conversations.List)
	r.POST("/v1/conversations", conversations.Create)
	r.GET("/v1/conversations/stream", conversations.Stream)
	r.PATCH("/v1/conversations/:id", conversations.Rename)
	r.DELETE("/v1/conversations/:id", conversations.Delete)
	r.GET("/v1/conversations/:id/messages", messages.List)
	r.POST("/v1/conversations/:id/messages", messages.Send)
	r.GET("/v1/conversations/:id/messages/stream", messages.Stream)
	r.GET("/v1/conversations/:id/state", messages.State)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}
