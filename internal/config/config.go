package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
	"trivia-quiz/internal/domain"
)

type Config struct {
	Server struct {
		Bind    string `yaml:"bind"`
		Port    string `yaml:"port"`
		Prefix  string `yaml:"prefix"`
		TLSCert string `yaml:"tls_cert"`
		TLSKey  string `yaml:"tls_key"`
	} `yaml:"server"`
	Trivia struct {
		URL      string `yaml:"url"`
		Amount   int    `yaml:"amount"`
		Type     string `yaml:"type"`
		Timeout  string `yaml:"timeout"`
		Shuffle  string `yaml:"shuffle"`
		BankFile string `yaml:"bank_file"`
	} `yaml:"trivia"`
	Identity struct {
		TTL string `yaml:"ttl"`
	} `yaml:"identity"`
	Rounds struct {
		TTL string `yaml:"ttl"`
	} `yaml:"rounds"`
	Ledger struct {
		Backend    string `yaml:"backend"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"ledger"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Bind = "0.0.0.0"
	cfg.Server.Port = "8080"
	cfg.Trivia.URL = "https://opentdb.com/api.php"
	cfg.Trivia.Amount = 10
	cfg.Trivia.Type = "multiple"
	cfg.Trivia.Shuffle = "comparator"
	cfg.Identity.TTL = "168h"
	cfg.Rounds.TTL = "1h"
	cfg.Ledger.Backend = BackendMemory
	cfg.Ledger.SQLitePath = "trivia.db"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("%w: both tls_cert and tls_key must be provided together", domain.ErrInvalidConfig)
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: invalid port (must be between 1-65535 inclusive): %q", domain.ErrInvalidConfig, c.Server.Port)
	}
	switch c.Ledger.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis ledger requires redis.addr", domain.ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("%w: postgres ledger requires postgres.url", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownBackend, c.Ledger.Backend)
	}
	switch c.Trivia.Shuffle {
	case "", "comparator", "uniform":
	default:
		return fmt.Errorf("%w: unknown shuffle mode %q", domain.ErrInvalidConfig, c.Trivia.Shuffle)
	}
	if c.Trivia.Amount < 1 {
		return fmt.Errorf("%w: trivia.amount must be positive", domain.ErrInvalidConfig)
	}
	for _, d := range []struct{ key, raw string }{
		{"identity.ttl", c.Identity.TTL},
		{"rounds.ttl", c.Rounds.TTL},
		{"trivia.timeout", c.Trivia.Timeout},
	} {
		if d.raw == "" {
			continue
		}
		if v, err := time.ParseDuration(d.raw); err != nil || v < 0 {
			return fmt.Errorf("%w: invalid duration for %s: %q", domain.ErrInvalidConfig, d.key, d.raw)
		}
	}
	return nil
}

// Scheme reports the URL scheme the server listens with.
func (c Config) Scheme() string {
	if c.Server.TLSCert != "" && c.Server.TLSKey != "" {
		return "https"
	}
	return "http"
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
