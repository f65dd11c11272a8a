package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.ReadTimeout)
	assert.Equal(t, int64(65536), cfg.MaxMessageSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://localhost/fieldops")
	t.Setenv("WS_PING_INTERVAL_MS", "500")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/fieldops", cfg.DatabaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PingInterval)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldops.yaml")
	content := "http_port: 7070\nlog_level: debug\ndatabase_driver: gorm-sqlite\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(EnvConfigFile, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTPPort)
	assert.Equal(t, "gorm-sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	t.Run("driver", func(t *testing.T) {
		t.Setenv("DATABASE_DRIVER", "oracle")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("log format", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "xml")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
