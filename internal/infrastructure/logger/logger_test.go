package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/janhq/jan-chat/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel(" DEBUG "))
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&config.Config{
		ServiceName:  "jan-chat",
		Environment:  "test",
		LogLevel:     "warn",
		StoreBackend: config.StoreMemory,
	}, &buf)

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), `"service":"jan-chat"`)
	assert.Contains(t, buf.String(), `"store":"memory"`)
}
