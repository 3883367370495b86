package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreGraphQL, cfg.StoreBackend)
	assert.Equal(t, ScopeConversation, cfg.InteractionScope)
	assert.Equal(t, 30*time.Second, cfg.ResponderTimeout)
	assert.Equal(t, "ws://localhost:1337/v1/graphql", cfg.GraphQLWSURL)
	assert.Equal(t, ":8090", cfg.Addr())
	assert.Equal(t, 45*time.Second, cfg.StateLockTTL())
}

func TestLoadRejectsInvalidScope(t *testing.T) {
	t.Setenv("INTERACTION_SCOPE", "galaxy")
	_, err := Load()
	assert.ErrorContains(t, err, "INTERACTION_SCOPE")
}

func TestLoadRejectsOutOfRangeTimeout(t *testing.T) {
	t.Setenv("RESPONDER_TIMEOUT", "10m")
	_, err := Load()
	assert.ErrorContains(t, err, "RESPONDER_TIMEOUT")
}

func TestLoadRequiresJWKSWhenAuthEnabled(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_ISSUER", "http://localhost:1337")
	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_JWKS_URL")
}

func TestLoadSessionScopeWithSecureWebsocket(t *testing.T) {
	t.Setenv("INTERACTION_SCOPE", "Session")
	t.Setenv("GRAPHQL_URL", "https://chat.example.com/v1/graphql")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ScopeSession, cfg.InteractionScope)
	assert.Equal(t, "wss://chat.example.com/v1/graphql", cfg.GraphQLWSURL)
}
