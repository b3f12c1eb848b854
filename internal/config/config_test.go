package config_test

import (
	"testing"
	"time"

	"github.com/brainbox-app/brainbox/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEnvVars_Defaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")

	c := config.New()
	require.Equal(t, "https://your-api.com", c.GetAPIURL())
	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 20*time.Second, c.GetRequestTimeout())
	require.Equal(t, 5*time.Minute, c.GetExpiryBuffer())
	require.Equal(t, time.Hour, c.GetDefaultTokenLifetime())
}

func TestEnvVars_Overrides(t *testing.T) {
	t.Setenv("API_URL", "http://localhost:3000")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "15s")
	t.Setenv("RATE_LIMIT_MAX", "7")
	t.Setenv("TOKEN_STORE_PATH", "/tmp/brainbox/session.bin")

	c := config.New()
	require.Equal(t, "http://localhost:3000", c.GetAPIURL())
	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, int64(7), c.GetRateLimitMax())
	require.Equal(t, "/tmp/brainbox/session.bin", c.GetTokenStorePath())
}

func TestGetDurationEnv_Malformed(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	require.Equal(t, 20*time.Second, config.New().GetRequestTimeout())
}

func TestCors_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.brainbox.dev, https://admin.brainbox.dev")

	origins := config.New().GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://app.brainbox.dev"))
	require.True(t, origins.IsAllowedOrigin("https://admin.brainbox.dev"))
	require.False(t, origins.IsAllowedOrigin("*"))
}
