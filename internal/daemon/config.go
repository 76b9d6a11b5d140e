// Package daemon manages the mindpath daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Storage    StorageConfig    `toml:"storage"`
	Engagement EngagementConfig `toml:"engagement"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host            string `toml:"host" env:"MINDPATH_API_HOST"`
	Port            int    `toml:"port" env:"MINDPATH_API_PORT"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// StorageConfig controls where the SQLite database lives.
type StorageConfig struct {
	DataDir string `toml:"data_dir" env:"MINDPATH_DATA_DIR"`
}

// EngagementConfig controls progression and notification behavior.
type EngagementConfig struct {
	DefaultTimeZone string                    `toml:"default_time_zone" env:"MINDPATH_DEFAULT_TZ"`
	CatalogFile     string                    `toml:"catalog_file" env:"MINDPATH_CATALOG_FILE"`
	Notifications   domain.NotificationPolicy `toml:"notifications"`
	MaxPerDay       int                       `toml:"-" env:"MINDPATH_MAX_PER_DAY"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level" env:"MINDPATH_LOG_LEVEL"`
	Format string `toml:"format" env:"MINDPATH_LOG_FORMAT"` // json | console
}

// TelemetryConfig controls metrics and health checks.
type TelemetryConfig struct {
	Prometheus     bool   `toml:"prometheus" env:"MINDPATH_METRICS"`
	HealthInterval string `toml:"health_interval"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:            "127.0.0.1",
			Port:            8420,
			ShutdownTimeout: "15s",
		},
		Storage: StorageConfig{
			DataDir: mindpathHome(),
		},
		Engagement: EngagementConfig{
			DefaultTimeZone: "UTC",
			Notifications:   domain.DefaultNotificationPolicy(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Prometheus:     false,
			HealthInterval: "60s",
		},
	}
}

// LoadConfig reads config from ~/.mindpath/config.toml, falling back to
// defaults, then applies MINDPATH_* environment overrides.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads config from path. A missing file yields defaults.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Engagement.MaxPerDay > 0 {
		cfg.Engagement.Notifications.MaxPerDay = cfg.Engagement.MaxPerDay
	}

	return cfg, cfg.Validate()
}

// Validate checks values the daemon cannot start without.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := time.LoadLocation(c.Engagement.DefaultTimeZone); err != nil {
		return fmt.Errorf("engagement.default_time_zone: %w: %q", domain.ErrInvalidTimeZone, c.Engagement.DefaultTimeZone)
	}
	if c.Engagement.Notifications.MaxPerDay < 0 {
		return fmt.Errorf("engagement.notifications.max_per_day must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}

// SaveConfig writes the config to ~/.mindpath/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

// SaveConfigTo writes the config as TOML to path.
func SaveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(mindpathHome(), "config.toml")
}

// mindpathHome returns the mindpath data directory.
func mindpathHome() string {
	if env := os.Getenv("MINDPATH_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mindpath")
}

// MindpathHome is exported for use by other packages.
func MindpathHome() string {
	return mindpathHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
