package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMemoryDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
storage:
  driver: memory
timezone: UTC
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CoreConfig().Telegram.Token != "abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Session.IdleTTL != 24*time.Hour || cfg.Session.SweepInterval != 10*time.Minute {
		t.Fatalf("session defaults = %+v", cfg.Session)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("location = %v", cfg.Location())
	}
}

func TestLoadDurationsAndEnv(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
database:
  host: db
  name: sprints
session:
  idle_ttl: 2h
`)
	t.Setenv("SESSION_SWEEP_INTERVAL", "30s")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Database.Port != "5432" {
		t.Fatalf("storage = %+v db = %+v", cfg.Storage, cfg.Database)
	}
	if cfg.Session.IdleTTL != 2*time.Hour || cfg.Session.SweepInterval != 30*time.Second {
		t.Fatalf("session = %+v", cfg.Session)
	}
}

func TestNormalizeRejects(t *testing.T) {
	base := func() Config {
		var c Config
		c.Telegram.Token = "abc"
		c.Storage.Driver = "memory"
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"postgres without host", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"negative ttl", func(c *Config) { c.Session.IdleTTL = -time.Second }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := Normalize(&cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
