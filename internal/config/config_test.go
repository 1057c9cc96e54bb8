package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, "primary", cfg.GoogleCalendarID)
	assert.Equal(t, 10*time.Second, cfg.CalendarTimeout)
	assert.True(t, cfg.ReopenRejectedRequests)
	assert.Equal(t, time.Hour, cfg.SlotDuration)
	assert.Equal(t, 30*time.Minute, cfg.SlotStep)
	assert.Equal(t, 20, cfg.SlotLimit)
	assert.Equal(t, 256, cfg.DispatchQueueSize)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/mentor")
	t.Setenv("REOPEN_REJECTED_REQUESTS", "false")
	t.Setenv("SLOT_DURATION_MINUTES", "45")
	t.Setenv("CALENDAR_TIMEOUT", "3s")
	t.Setenv("TELEGRAM_BOT_NAME", "@mentor_bot")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "noreply@example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.False(t, cfg.ReopenRejectedRequests)
	assert.Equal(t, 45*time.Minute, cfg.SlotDuration)
	assert.Equal(t, 3*time.Second, cfg.CalendarTimeout)
	assert.Equal(t, "mentor_bot", cfg.TelegramBotName)
	assert.True(t, cfg.SMTP.Enabled())
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestFromEnvCollectsErrors(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORAGE", "postgres")
	t.Setenv("SLOT_LIMIT", "many")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "SLOT_LIMIT")
}
