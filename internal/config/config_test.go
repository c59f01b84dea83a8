package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/meeting-notifier/internal/config"
)

// inTempDir keeps any .env in the repo from leaking into a test.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/notifications")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "notification-service", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "redis", cfg.QueueBackend)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.BackoffBase)
	assert.Equal(t, 30*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, "notifications", cfg.InAppTopic)
	assert.Equal(t, "file://migrations", cfg.MigrationsPath)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/notifications")
	t.Setenv("WORKERS", "4")
	t.Setenv("BACKOFF_BASE", "500ms")
	t.Setenv("QUEUE_BACKEND", "MEMORY")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.BackoffBase)
	assert.Equal(t, "memory", cfg.QueueBackend)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")
	t.Setenv("HTTP_PORT", "9090")

	env := "DATABASE_URL=postgres://from-dotenv/db\nHTTP_PORT=7070\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://from-dotenv/db", cfg.DatabaseURL)
	// A variable already in the environment is not overwritten by .env.
	assert.Equal(t, "9090", cfg.HTTPPort)
}

func TestLoad_RejectsUnknownBackends(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/notifications")

	t.Setenv("QUEUE_BACKEND", "kafka")
	_, err := config.Load()
	assert.ErrorContains(t, err, "QUEUE_BACKEND")

	t.Setenv("QUEUE_BACKEND", "redis")
	t.Setenv("PUSH_BACKEND", "webhook")
	_, err = config.Load()
	assert.ErrorContains(t, err, "PUSH_WEBHOOK_URL")
}

func TestLoad_LeaseMustOutlastAttempt(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/notifications")
	t.Setenv("QUEUE_BACKEND", "redis")

	t.Setenv("ATTEMPT_TIMEOUT", "30s")
	t.Setenv("QUEUE_LEASE_TIMEOUT", "30s")
	_, err := config.Load()
	assert.ErrorContains(t, err, "QUEUE_LEASE_TIMEOUT")

	t.Setenv("ATTEMPT_TIMEOUT", "0s")
	t.Setenv("QUEUE_LEASE_TIMEOUT", "2m")
	_, err = config.Load()
	assert.ErrorContains(t, err, "ATTEMPT_TIMEOUT")

	// The memory queue has no leases.
	t.Setenv("QUEUE_BACKEND", "memory")
	t.Setenv("ATTEMPT_TIMEOUT", "30s")
	t.Setenv("QUEUE_LEASE_TIMEOUT", "10s")
	_, err = config.Load()
	assert.NoError(t, err)

	t.Setenv("QUEUE_BACKEND", "redis")
	t.Setenv("QUEUE_LEASE_TIMEOUT", "31s")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 31*time.Second, cfg.QueueLeaseTimeout)
}
