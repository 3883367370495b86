// Package logger builds the gateway's root zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/config"
)

// New returns the root logger. Every line carries the service, environment
// and the active store backend so replicas on different backends can be told
// apart. Production writes JSON lines, other environments a console format.
func New(cfg *config.Config) zerolog.Logger {
	return newWithWriter(cfg, writerFor(cfg.Environment))
}

func writerFor(environment string) io.Writer {
	if environment == "production" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
}

func newWithWriter(cfg *config.Config, w io.Writer) zerolog.Logger {
	zerolog.DurationFieldUnit = time.Millisecond

	ctx := zerolog.New(w).Level(parseLevel(cfg.LogLevel)).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment)
	if cfg.StoreBackend != "" {
		ctx = ctx.Str("store", cfg.StoreBackend)
	}
	log := ctx.Logger()
	zerolog.DefaultContextLogger = &log
	return log
}

// parseLevel falls back to info for empty or unknown levels.
func parseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || raw == "" {
		return zerolog.InfoLevel
	}
	return level
}
