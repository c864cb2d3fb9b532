package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeDefaultsRunMode(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: "Polling"}}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing token", Config{}},
		{"unknown mode", Config{Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}}},
		{"webhook without url", Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}},
		{"negative timeout", Config{Telegram: TelegramConfig{Token: "t", LongPollTimeoutSeconds: -1}}},
		{"bad debug sample", Config{
			Telegram: TelegramConfig{Token: "t"},
			Logging:  LoggingConfig{DebugSample: "often"},
		}},
		{"bad exclusion", Config{
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := Normalize(&cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNormalizeLowercasesExclusions(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclusion = %q", cfg.RateLimit.ExcludeUpdates[0])
	}
}

func TestLoadOverlaysEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("telegram:\n  token: from-file\n  run_mode: longpoll\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestNormalizeReportsAllProblems(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{RunMode: "webhook"},
		RateLimit: RateLimitConfig{IntervalMS: -1},
	}
	err := Normalize(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"token", "webhook.url", "webhook.port", "interval_ms"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("%q missing from %v", want, err)
		}
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  tokn: typo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := Decode(path, &cfg); err == nil {
		t.Fatal("misspelled key accepted")
	}
}

func TestSampleRatio(t *testing.T) {
	valid := map[string][2]int{"0": {0, 0}, "25": {1, 25}, " 3/10 ": {3, 10}}
	for in, want := range valid {
		n, d, err := SampleRatio(in)
		if err != nil || n != want[0] || d != want[1] {
			t.Errorf("SampleRatio(%q) = %d/%d %v", in, n, d, err)
		}
	}
	for _, in := range []string{"", "x", "1/0", "0/5", "-2"} {
		if _, _, err := SampleRatio(in); err == nil {
			t.Errorf("SampleRatio(%q) accepted", in)
		}
	}
}
