package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://app@localhost/rota
  service_dsn: postgres://service@localhost/rota
nats:
  url: nats://localhost:4222
http:
  address: ":9090"
  allowed_origins: ["https://rota.example.com"]
badges:
  operation_timeout: 3s
  streak_lookback_weeks: 20
queue:
  enabled: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://service@localhost/rota", cfg.Postgres.ServiceDSN)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, []string{"https://rota.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Badges.OperationTimeout)
	assert.Equal(t, 20, cfg.Badges.StreakLookbackWeeks)
	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, DefaultQueueMaxWorkers, cfg.Queue.MaxWorkers)
	assert.Equal(t, float64(DefaultRateLimit), cfg.HTTP.RateLimit)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "postgres:\n  dsn: postgres://file\n")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("QUEUE_ENABLED", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, "s3cret", cfg.HTTP.JWTSecret)
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	t.Run("requires a database", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DATABASE_SERVICE_URL", "")
		_, err := LoadConfig(missing)
		assert.Error(t, err)
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Setenv("NATS_URL", "")
		t.Setenv("DATABASE_SERVICE_URL", "postgres://service")
		cfg, err := LoadConfig(missing)
		require.NoError(t, err)
		assert.Equal(t, DefaultHTTPAddress, cfg.HTTP.Address)
		assert.Equal(t, DefaultOperationTimeout, cfg.Badges.OperationTimeout)
		assert.Empty(t, cfg.NATS.URL)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env")
		t.Setenv("RATE_BURST", "lots")
		_, err := LoadConfig(missing)
		assert.Error(t, err)
	})
}
