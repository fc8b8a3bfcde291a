package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds client configuration loaded from the environment.
type Config struct {
	// ServerURL is the base URL of the SwiftParcel backend API.
	ServerURL string `env:"SWIFTPARCEL_SERVER_URL" envDefault:"https://api.swiftparcel.app"`
	// SocketPath is the socket.io mount path on the server.
	SocketPath string `env:"SWIFTPARCEL_SOCKET_PATH" envDefault:"/api/v1/realtime"`
	// RequestTimeoutSeconds bounds individual REST calls.
	RequestTimeoutSeconds int `env:"SWIFTPARCEL_REQUEST_TIMEOUT_SECONDS" envDefault:"15"`
	// SnapshotPollSeconds is the tracking-view snapshot re-fetch interval.
	SnapshotPollSeconds int `env:"SWIFTPARCEL_SNAPSHOT_POLL_SECONDS" envDefault:"30"`
	// LogLevel selects the SDK log threshold (trace|debug|info|warn|error).
	LogLevel string `env:"SWIFTPARCEL_LOG_LEVEL" envDefault:"info"`
	// Home is the directory where the client stores local state (saved session).
	Home string `env:"SWIFTPARCEL_HOME_DIR"`
	// Debug enables verbose socket logging.
	Debug bool `env:"SWIFTPARCEL_DEBUG" envDefault:"false"`
}

// Load reads configuration from the environment and fills defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.Home = filepath.Join(homeDir, ".swiftparcel")
	}
	if err := os.MkdirAll(cfg.Home, 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	return &cfg, nil
}

// RequestTimeout returns the REST call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SnapshotPollInterval returns the snapshot poll interval as a duration.
func (c *Config) SnapshotPollInterval() time.Duration {
	return time.Duration(c.SnapshotPollSeconds) * time.Second
}

// SessionFile is the path where the saved session is persisted.
func (c *Config) SessionFile() string {
	return filepath.Join(c.Home, "session.json")
}
