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

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 60*time.Minute, cfg.Security.JWTAccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Security.RefreshTokenTTL)
	assert.Equal(t, 64, cfg.Security.RefreshTokenBytes)
	assert.Equal(t, 5, cfg.Security.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Security.LockoutDuration)
	assert.Equal(t, "memory", cfg.RateLimit.Mode)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.Migrate.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Migrate.BaseDelay)
	assert.Equal(t, "chaplog:maintenance", cfg.Redis.Stream)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHAPLOG_SECURITY_JWTKEY", "an-env-supplied-signing-key-of-32-bytes")
	t.Setenv("CHAPLOG_POSTGRES_DSN", "postgres://chaplog@localhost/chaplog")
	t.Setenv("CHAPLOG_RATELIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "an-env-supplied-signing-key-of-32-bytes", cfg.Security.JWTKey)
	assert.Equal(t, "postgres://chaplog@localhost/chaplog", cfg.Postgres.DSN)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.RateLimit.Mode = "cluster"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn is required")
	assert.Contains(t, err.Error(), "security.jwtkey")
	assert.Contains(t, err.Error(), `ratelimit.mode "cluster"`)
}
