package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trivia-quiz/internal/domain"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `server:
  port: "9090"
ledger:
  backend: redis
redis:
  addr: localhost:6379
trivia:
  shuffle: uniform
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Ledger.Backend != BackendRedis || cfg.Trivia.Shuffle != "uniform" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Trivia.Amount != 10 || cfg.Trivia.Type != "multiple" || cfg.Server.Bind != "0.0.0.0" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ledger.Backend != BackendMemory {
		t.Fatalf("expected memory ledger by default, got %q", cfg.Ledger.Backend)
	}
	if TTLDuration(cfg.Identity.TTL, 0) != 7*24*time.Hour {
		t.Fatalf("expected 7 day identity ttl, got %s", cfg.Identity.TTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad port", func(c *Config) { c.Server.Port = "70000" }, domain.ErrInvalidConfig},
		{"half tls", func(c *Config) { c.Server.TLSCert = "cert.pem" }, domain.ErrInvalidConfig},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "mongo" }, domain.ErrUnknownBackend},
		{"postgres without url", func(c *Config) { c.Ledger.Backend = BackendPostgres }, domain.ErrInvalidConfig},
		{"bad shuffle", func(c *Config) { c.Trivia.Shuffle = "random" }, domain.ErrInvalidConfig},
		{"identity ttl in days", func(c *Config) { c.Identity.TTL = "7d" }, domain.ErrInvalidConfig},
		{"garbage rounds ttl", func(c *Config) { c.Rounds.TTL = "soon" }, domain.ErrInvalidConfig},
		{"negative timeout", func(c *Config) { c.Trivia.Timeout = "-5s" }, domain.ErrInvalidConfig},
		{"valid durations", func(c *Config) { c.Trivia.Timeout = "10s"; c.Rounds.TTL = "30m" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("garbage", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on bad input, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
