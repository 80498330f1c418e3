// Package config loads the warden runtime configuration from a YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Persistence selects and configures the durable storage backend.
type Persistence struct {
	// Driver is one of "file", "redis" or "postgres".
	Driver string `yaml:"driver" env:"WARDEN_PERSISTENCE_DRIVER"`
	// Path is the snapshot file location for the file driver.
	Path string `yaml:"path" env:"WARDEN_PERSISTENCE_PATH"`
	// RedisAddr is the host:port for the redis driver.
	RedisAddr string `yaml:"redis_addr" env:"WARDEN_REDIS_ADDR"`
	// PostgresURL is the connection string for the postgres driver.
	PostgresURL string `yaml:"postgres_url" env:"WARDEN_POSTGRES_URL"`
}

// Config is the complete runtime configuration.
type Config struct {
	// OwnerID is the canonical identifier of the bot owner. Messages
	// from this identity bypass all authorization checks.
	OwnerID string `yaml:"owner_id" env:"WARDEN_OWNER_ID"`

	// CommandPrefix marks command messages, e.g. ".ping".
	CommandPrefix string `yaml:"command_prefix" env:"WARDEN_COMMAND_PREFIX"`

	// AuditLogSize caps the permission audit ring buffer.
	AuditLogSize int `yaml:"audit_log_size" env:"WARDEN_AUDIT_LOG_SIZE"`

	// SweepInterval is the period of the game inactivity sweeper.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"WARDEN_SWEEP_INTERVAL"`

	// InactivityThreshold force-ends games idle for longer than this.
	InactivityThreshold time.Duration `yaml:"inactivity_threshold" env:"WARDEN_INACTIVITY_THRESHOLD"`

	// MirrorInterval is the period of session-store snapshots to
	// durable storage.
	MirrorInterval time.Duration `yaml:"mirror_interval" env:"WARDEN_MIRROR_INTERVAL"`

	// MetricsAddr is the listen address for the Prometheus endpoint.
	// Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr" env:"WARDEN_METRICS_ADDR"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" env:"WARDEN_LOG_LEVEL"`

	Persistence Persistence `yaml:"persistence"`
}

// Default returns the configuration defaults applied before file and
// environment values.
func Default() Config {
	return Config{
		CommandPrefix:       ".",
		AuditLogSize:        256,
		SweepInterval:       time.Minute,
		InactivityThreshold: 10 * time.Minute,
		MirrorInterval:      30 * time.Second,
		MetricsAddr:         ":9091",
		LogLevel:            "info",
		Persistence: Persistence{
			Driver: "file",
			Path:   "warden.state.json",
		},
	}
}

// Load reads configuration from the YAML file at path (skipped when
// path is empty or missing), then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.CommandPrefix == "" {
		return fmt.Errorf("command_prefix must not be empty")
	}
	if c.AuditLogSize <= 0 {
		return fmt.Errorf("audit_log_size must be positive, got %d", c.AuditLogSize)
	}
	switch c.Persistence.Driver {
	case "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown persistence driver %q", c.Persistence.Driver)
	}
	return nil
}
