package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/tradesync/market"
	"gopkg.in/yaml.v3"
)

// Config represents the complete reconciliation configuration
type Config struct {
	UserID    string                `json:"user_id" yaml:"user_id"`
	Log       LogConfig             `json:"log" yaml:"log"`
	Journal   JournalConfig         `json:"journal" yaml:"journal"`
	Staging   StagingConfig         `json:"staging" yaml:"staging"`
	Notify    NotifyConfig          `json:"notify" yaml:"notify"`
	Tracing   bool                  `json:"tracing" yaml:"tracing"`
	Contracts []market.ContractSpec `json:"contracts,omitempty" yaml:"contracts,omitempty"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or console
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// JournalConfig contains persistence parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "postgres"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	OpenFile   string `json:"open_file,omitempty" yaml:"open_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN        string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// StagingConfig selects where manual order batches wait for processing
type StagingConfig struct {
	Type string `json:"type" yaml:"type"` // "memory" or "pebble"
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// NotifyConfig selects where progress events go
type NotifyConfig struct {
	Type      string `json:"type" yaml:"type"` // "none", "log", "redis" or a comma list like "log,redis"
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Channel   string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// Environment overrides, applied after the file is parsed.
const (
	EnvPostgresDSN = "TRADESYNC_PG_DSN"
	EnvRedisAddr   = "TRADESYNC_REDIS_ADDR"
	EnvLogLevel    = "TRADESYNC_LOG_LEVEL"
	EnvUserID      = "TRADESYNC_USER_ID"
)

// LoadFromFile loads configuration from a file (JSON or YAML), applies
// environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if present.
// Existing variables are not overwritten.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// ApplyEnv overrides secrets and deployment specific values from the
// environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Journal.DSN = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Notify.RedisAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvUserID); v != "" {
		c.UserID = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.OpenFile == "" {
			return fmt.Errorf("journal trades_file and open_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal dsn required for Postgres type (or set %s)", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'postgres'")
	}

	switch c.Staging.Type {
	case "", "memory":
	case "pebble":
		if c.Staging.Path == "" {
			return fmt.Errorf("staging path required for pebble type")
		}
	default:
		return fmt.Errorf("staging.type must be 'memory' or 'pebble'")
	}

	for _, t := range c.Notify.Types() {
		switch t {
		case "log":
		case "redis":
			if c.Notify.RedisAddr == "" {
				return fmt.Errorf("notify redis_addr required for redis type (or set %s)", EnvRedisAddr)
			}
		default:
			return fmt.Errorf("notify.type must list 'none', 'log' or 'redis', got %q", t)
		}
	}

	for i, s := range c.Contracts {
		if market.Normalize(s.Symbol) == "" {
			return fmt.Errorf("contracts[%d]: symbol is required", i)
		}
		if !s.Valid() {
			return fmt.Errorf("contracts[%d] %s: tick_size and tick_value must be positive", i, s.Symbol)
		}
	}
	return nil
}

// Types splits Type on commas. Blank entries and "none" are dropped, so an
// empty result means events are discarded.
func (n NotifyConfig) Types() []string {
	var out []string
	for _, t := range strings.Split(n.Type, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || t == "none" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Specs returns the configured contract specs as a lookup table.
func (c *Config) Specs() market.SpecTable {
	return market.NewSpecTable(c.Contracts...)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./tradesync.sqlite",
		},
		Staging: StagingConfig{
			Type: "memory",
		},
		Notify: NotifyConfig{
			Type:    "log",
			Channel: "tradesync:events",
		},
		Contracts: []market.ContractSpec{
			{Symbol: "ES", TickSize: 0.25, TickValue: 12.5},
			{Symbol: "MES", TickSize: 0.25, TickValue: 1.25},
			{Symbol: "NQ", TickSize: 0.25, TickValue: 5},
			{Symbol: "MNQ", TickSize: 0.25, TickValue: 0.5},
			{Symbol: "CL", TickSize: 0.01, TickValue: 10},
			{Symbol: "GC", TickSize: 0.1, TickValue: 10},
			{Symbol: "ZB", TickSize: 1.0 / 32.0, TickValue: 31.25},
		},
	}
}
