package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "MONGO_DB", "JWT_EXPIRE_HOURS", "NOTIFICATION_STATUS_TTL_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "chatter", cfg.MongoDB)
	require.Equal(t, 300*time.Second, cfg.NotificationStatusTTL)
	require.Equal(t, 24*time.Hour, cfg.JWTExpire)
	require.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_EXPIRE_HOURS", "2")
	t.Setenv("SEARCH_RATE_LIMIT_RPS", "0.5")
	t.Setenv("SEARCH_RATE_LIMIT_BURST", "not-a-number")

	cfg := Load()

	require.True(t, cfg.IsProduction())
	require.Equal(t, 2*time.Hour, cfg.JWTExpire)
	require.Equal(t, 0.5, cfg.SearchRateLimitRPS)
	require.Equal(t, 10, cfg.SearchRateLimitBurst)
}
