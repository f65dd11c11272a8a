// Package config provides configuration for the work session service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keyHTTPPort          = "HTTP_PORT"
	keyDatabaseDriver    = "DATABASE_DRIVER"
	keyDatabaseURL       = "DATABASE_URL"
	keyPolicyFile        = "POLICY_FILE"
	keyLogLevel          = "LOG_LEVEL"
	keyLogFormat         = "LOG_FORMAT"
	keyLogFile           = "LOG_FILE"
	keyLogMaxSizeMB      = "LOG_MAX_SIZE_MB"
	keyWSPingIntervalMs  = "WS_PING_INTERVAL_MS"
	keyWSWriteTimeoutMs  = "WS_WRITE_TIMEOUT_MS"
	keyWSReadTimeoutMs   = "WS_READ_TIMEOUT_MS"
	keyWSMaxMessageSize  = "WS_MAX_MESSAGE_SIZE"
	keyShutdownTimeoutMs = "SHUTDOWN_TIMEOUT_MS"

	// EnvConfigFile names an optional YAML file read before the
	// environment.
	EnvConfigFile = "CONFIG_FILE"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort        int
	ShutdownTimeout time.Duration

	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Policy
	PolicyFile string

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel     string
	LogFormat    string
	LogFile      string
	LogMaxSizeMB int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyHTTPPort, 8080)
	v.SetDefault(keyDatabaseDriver, "sqlite3")
	v.SetDefault(keyDatabaseURL, "file:fieldops.db?cache=shared&mode=rwc")
	v.SetDefault(keyPolicyFile, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyLogMaxSizeMB, 100)
	v.SetDefault(keyWSPingIntervalMs, 30000)
	v.SetDefault(keyWSWriteTimeoutMs, 10000)
	v.SetDefault(keyWSReadTimeoutMs, 60000)
	v.SetDefault(keyWSMaxMessageSize, 65536)
	v.SetDefault(keyShutdownTimeoutMs, 10000)
}

// Load builds the configuration from defaults, the optional YAML file at
// path (or $CONFIG_FILE when path is empty) and environment variables, in
// increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPPort:        v.GetInt(keyHTTPPort),
		ShutdownTimeout: millis(v.GetInt(keyShutdownTimeoutMs)),
		DatabaseDriver:  strings.ToLower(v.GetString(keyDatabaseDriver)),
		DatabaseURL:     v.GetString(keyDatabaseURL),
		PolicyFile:      v.GetString(keyPolicyFile),
		PingInterval:    millis(v.GetInt(keyWSPingIntervalMs)),
		WriteTimeout:    millis(v.GetInt(keyWSWriteTimeoutMs)),
		ReadTimeout:     millis(v.GetInt(keyWSReadTimeoutMs)),
		MaxMessageSize:  v.GetInt64(keyWSMaxMessageSize),
		LogLevel:        strings.ToLower(v.GetString(keyLogLevel)),
		LogFormat:       strings.ToLower(v.GetString(keyLogFormat)),
		LogFile:         v.GetString(keyLogFile),
		LogMaxSizeMB:    v.GetInt(keyLogMaxSizeMB),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "gorm-sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported %s %q", keyDatabaseDriver, c.DatabaseDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported %s %q", keyLogFormat, c.LogFormat)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid %s %d", keyHTTPPort, c.HTTPPort)
	}
	if c.PingInterval <= 0 || c.WriteTimeout <= 0 || c.ReadTimeout <= 0 {
		return fmt.Errorf("websocket intervals must be positive")
	}
	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
