package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/responses"
)

// apiError is a non-2xx gateway answer.
type apiError struct {
	Status int
	Body   responses.ErrorResponse
}

func (e *apiError) Error() string {
	msg := e.Body.Error
	if e.Body.Message != "" && e.Body.Message != msg {
		msg += ": " + e.Body.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("gateway returned %d", e.Status)
	}
	if e.Body.Reason != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Body.Reason)
	}
	return msg
}

// sendFailure is returned when the user message was stored but no reply came back.
type sendFailure struct {
	apiError
	UserMessage *responses.MessageResponse
}

type apiClient struct {
	http   *resty.Client
	stream *resty.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &apiClient{
		// Sends wait for the responder, which the gateway bounds at 5m at most.
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(6 * time.Minute),
		stream: resty.New().SetBaseURL(baseURL),
	}
	for _, r := range []*resty.Client{c.http, c.stream} {
		r.SetHeader("Accept", "application/json")
		if token != "" {
			r.SetAuthToken(token)
		}
	}
	return c
}

// conversationPath escapes id so it always stays a single path segment.
func conversationPath(id string, rest ...string) string {
	return "/v1/conversations/" + strings.Join(append([]string{url.PathEscape(id)}, rest...), "/")
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var errBody responses.ErrorResponse
	req := c.http.R().SetContext(ctx).SetError(&errBody)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	if resp.IsError() {
		return &apiError{Status: resp.StatusCode(), Body: errBody}
	}
	return nil
}

func (c *apiClient) signUp(ctx context.Context, email, password string) (*responses.SignUpResponse, error) {
	var out responses.SignUpResponse
	err := c.do(ctx, resty.MethodPost, "/v1/auth/signup", map[string]string{"email": email, "password": password}, &out)
	return &out, err
}

func (c *apiClient) signIn(ctx context.Context, email, password string) (*auth.Session, error) {
	var out auth.Session
	err := c.do(ctx, resty.MethodPost, "/v1/auth/signin", map[string]string{"email": email, "password": password}, &out)
	return &out, err
}

func (c *apiClient) resendVerification(ctx context.Context, email string) error {
	return c.do(ctx, resty.MethodPost, "/v1/auth/verification", map[string]string{"email": email}, nil)
}

func (c *apiClient) signOut(ctx context.Context, refreshToken string) error {
	return c.do(ctx, resty.MethodPost, "/v1/auth/signout", map[string]string{"refresh_token": refreshToken}, nil)
}

func (c *apiClient) listConversations(ctx context.Context) ([]responses.SummaryResponse, error) {
	var out responses.ListResponse[responses.SummaryResponse]
	err := c.do(ctx, resty.MethodGet, "/v1/conversations", nil, &out)
	return out.Data, err
}

func (c *apiClient) createConversation(ctx context.Context, title string) (*responses.ConversationResponse, error) {
	var out responses.ConversationResponse
	err := c.do(ctx, resty.MethodPost, "/v1/conversations", map[string]string{"title": title}, &out)
	return &out, err
}

func (c *apiClient) renameConversation(ctx context.Context, id, title string) (*responses.ConversationResponse, error) {
	var out responses.ConversationResponse
	err := c.do(ctx, resty.MethodPatch, conversationPath(id), map[string]string{"title": title}, &out)
	return &out, err
}

func (c *apiClient) deleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, resty.MethodDelete, conversationPath(id), nil, nil)
}

func (c *apiClient) listMessages(ctx context.Context, id string) ([]*responses.MessageResponse, error) {
	var out responses.ListResponse[*responses.MessageResponse]
	err := c.do(ctx, resty.MethodGet, conversationPath(id, "messages"), nil, &out)
	return out.Data, err
}

func (c *apiClient) sendMessage(ctx context.Context, id, text string) (*responses.SendMessageResponse, error) {
	var out responses.SendMessageResponse
	var failure responses.SendFailureResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		SetResult(&out).
		SetError(&failure).
		Post(conversationPath(id, "messages"))
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable: %w", err)
	}
	if resp.IsError() {
		apiErr := apiError{Status: resp.StatusCode(), Body: failure.ErrorResponse}
		if failure.UserMessage != nil {
			return nil, &sendFailure{apiError: apiErr, UserMessage: failure.UserMessage}
		}
		return nil, &apiErr
	}
	return &out, nil
}

// streamEvents reads server sent events from path until ctx ends or the
// server closes the stream.
func (c *apiClient) streamEvents(ctx context.Context, path string, onEvent func(name string, data []byte) error) error {
	resp, err := c.stream.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		Get(path)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		var errBody responses.ErrorResponse
		data, _ := io.ReadAll(body)
		_ = c.stream.JSONUnmarshal(data, &errBody)
		return &apiError{Status: resp.StatusCode(), Body: errBody}
	}
	return readEvents(body, onEvent)
}

func readEvents(r io.Reader, onEvent func(name string, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var name string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				if err := onEvent(name, []byte(data.String())); err != nil {
					return err
				}
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment or keep-alive
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}
