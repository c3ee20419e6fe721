package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerHonoursLevel(t *testing.T) {
	ctx := context.Background()

	logger := NewLogger(&Config{LogLevel: "warn"})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = NewLogger(nil)
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestNewLoggerProductionLogsJSON(t *testing.T) {
	logger := NewLogger(&Config{AppEnv: "production"})
	_, ok := logger.Handler().(*slog.JSONHandler)
	assert.True(t, ok, "production must log JSON regardless of LOG_FORMAT")

	logger = NewLogger(&Config{LogFormat: "pretty"})
	_, ok = logger.Handler().(*slog.TextHandler)
	assert.True(t, ok)
}
