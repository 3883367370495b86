package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against server with an isolated state file.
func run(t *testing.T, server, statePath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--server", server, "--state", statePath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestThemeCommand(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.yaml")

	out, err := run(t, "http://unused", statePath, "theme")
	require.NoError(t, err)
	assert.Equal(t, "system\n", out)

	_, err = run(t, "http://unused", statePath, "theme", "dark")
	require.NoError(t, err)

	out, err = run(t, "http://unused", statePath, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	_, err = run(t, "http://unused", statePath, "theme", "neon")
	assert.Error(t, err)
}

func TestSignInStoresSessionAndSendsToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/auth/signin":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "secret-pass", body["password"])
			_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","user":{"id":"u1","email":"a@b.co"}}`))
		case "/v1/conversations":
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"c1","title":"Trip","message_count":2,"last_message":{"content":"Hi there!"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	statePath := filepath.Join(t.TempDir(), "state.yaml")

	out, err := run(t, server.URL, statePath, "signin", "--email", "a@b.co", "--password", "secret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as a@b.co")

	state, err := loadState(statePath)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", state.Session.RefreshToken)

	out, err = run(t, server.URL, statePath, "chats")
	require.NoError(t, err)
	assert.Equal(t, "Bearer at-1", gotAuth)
	assert.Contains(t, out, "Trip")
	assert.Contains(t, out, "Hi there!")
}

func TestSendReportsKeptMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`{"type":"AI_RESPONSE","reason":"timeout","error":"failed to get a response","user_message":{"id":"m1","content":"Hello"}}`))
	}))
	defer server.Close()

	_, err := run(t, server.URL, filepath.Join(t.TempDir(), "state.yaml"), "send", "c1", "Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saved but no reply")
	assert.Contains(t, err.Error(), "(timeout)")
}

func TestWatchPrintsMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/conversations/c1/messages/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:message\ndata:{\"role\":\"user\",\"content\":\"Hello\"}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event:state\ndata:{\"state\":\"sending\"}\n\n")
		fmt.Fprint(w, "event:message\ndata:{\"role\":\"assistant\",\"content\":\"Hi there!\"}\n\n")
	}))
	defer server.Close()

	out, err := run(t, server.URL, filepath.Join(t.TempDir(), "state.yaml"), "watch", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "user: Hello")
	assert.Contains(t, out, "waiting for a reply")
	assert.Contains(t, out, "assistant: Hi there!")
	assert.Less(t, strings.Index(out, "user: Hello"), strings.Index(out, "assistant: Hi there!"))
}

func TestConversationIDsStayOneSegment(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPatch:
			_, _ = w.Write([]byte(`{"id":"a/b?x","title":"Renamed"}`))
		default:
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		}
	}))
	defer server.Close()
	statePath := filepath.Join(t.TempDir(), "state.yaml")

	_, err := run(t, server.URL, statePath, "history", "a/b?x")
	require.NoError(t, err)
	_, err = run(t, server.URL, statePath, "rename", "a/b?x", "Renamed")
	require.NoError(t, err)
	_, err = run(t, server.URL, statePath, "delete", "a/b?x")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /v1/conversations/a%2Fb%3Fx/messages",
		"PATCH /v1/conversations/a%2Fb%3Fx",
		"DELETE /v1/conversations/a%2Fb%3Fx",
	}, paths)
}

func TestReadEventsMultilineData(t *testing.T) {
	var got []string
	err := readEvents(strings.NewReader("event:a\ndata:one\ndata:two\n\ndata:bare\n\n"), func(name string, data []byte) error {
		got = append(got, name+"="+string(data))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a=one\ntwo", "=bare"}, got)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", preview("a\n  b"))
	long := strings.Repeat("x", 100)
	assert.Equal(t, previewLength, len([]rune(preview(long))))
}
