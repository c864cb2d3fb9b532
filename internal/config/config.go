// Package config holds the sprintbot configuration: the reusable core
// sections plus storage, session and timezone settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/sprintbot/core/config"
	coredatabase "github.com/m3rciful/sprintbot/core/database"
)

const (
	defaultIdleTTL       = 24 * time.Hour
	defaultSweepInterval = 10 * time.Minute
)

// StorageConfig selects the task store.
type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// SeedFile is an optional YAML fixture of teams and users.
	SeedFile string `yaml:"seed_file" envconfig:"STORAGE_SEED_FILE"`
}

// SessionConfig controls conversation state retention.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"SESSION_IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`
}

// Config is the application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Session  SessionConfig       `yaml:"session"`
	// Timezone is an IANA name used for sprint dates; empty means the host zone.
	Timezone string `yaml:"timezone" envconfig:"BOT_TIMEZONE"`

	loc *time.Location
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Location returns the resolved timezone.
func (c *Config) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "", "postgres":
		driver = "postgres"
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres storage driver")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
	case "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, memory", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if cfg.Session.IdleTTL < 0 || cfg.Session.SweepInterval < 0 {
		return fmt.Errorf("session durations must be >= 0")
	}
	if cfg.Session.IdleTTL == 0 {
		cfg.Session.IdleTTL = defaultIdleTTL
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = defaultSweepInterval
	}

	cfg.loc = time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		cfg.loc = loc
	}
	return nil
}
