// Package config loads application settings from a YAML file, a .env file,
// environment variables and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dividend-hunter/internal/domain"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIBase       = "DIVIDEND_API_BASE"
	EnvStorage       = "DIVIDEND_STORAGE"
	EnvSQLitePath    = "DIVIDEND_SQLITE_PATH"
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickHouseDSN = "CLICKHOUSE_DSN"
	EnvListen        = "DIVIDEND_LISTEN"
)

// Config holds all application configuration.
type Config struct {
	API      APIConfig     `yaml:"api"`
	Storage  StorageConfig `yaml:"storage"`
	Server   ServerConfig  `yaml:"server"`
	Deck     DeckConfig    `yaml:"deck"`
	Currency string        `yaml:"currency"`
}

// APIConfig configures the remote data API client.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// StorageConfig selects and configures the local store backend.
// ClickHouseDSN, when set, moves trend snapshots to ClickHouse.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// ServerConfig configures cmd/server.
type ServerConfig struct {
	Listen    string  `yaml:"listen"`
	CardWidth float64 `yaml:"card_width"`
}

// DeckConfig holds the default deck filters.
type DeckConfig struct {
	Category  string  `yaml:"category"`
	MinYield  float64 `yaml:"min_yield"`
	MinSafety int     `yaml:"min_safety"`
	Limit     int     `yaml:"limit"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000/api",
			Timeout:        30 * time.Second,
			MaxRetries:     2,
			RetryDelay:     time.Second,
			HealthInterval: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			SQLitePath: "data/dividend-hunter.db",
		},
		Server: ServerConfig{
			Listen:    ":8080",
			CardWidth: 400,
		},
		Deck: DeckConfig{
			Limit: 100,
		},
		Currency: "USD",
	}
}

// LoadFile reads a YAML file over the defaults. A missing file is an error.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the configuration: defaults, then the YAML file at path (if not empty),
// then variables from the .env file (if present), then the process environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	return cfg, cfg.Validate()
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAPIBase, &c.API.BaseURL)
	set(EnvStorage, &c.Storage.Backend)
	set(EnvSQLitePath, &c.Storage.SQLitePath)
	set(EnvPostgresDSN, &c.Storage.PostgresDSN)
	set(EnvClickHouseDSN, &c.Storage.ClickHouseDSN)
	set(EnvListen, &c.Server.Listen)
}

// Overrides are command-line values. Empty fields are ignored.
type Overrides struct {
	APIBase    string
	Storage    string
	SQLitePath string
	Listen     string
}

// Apply sets every non-empty override and re-validates.
func (c *Config) Apply(o Overrides) error {
	if o.APIBase != "" {
		c.API.BaseURL = o.APIBase
	}
	if o.Storage != "" {
		c.Storage.Backend = o.Storage
	}
	if o.SQLitePath != "" {
		c.Storage.SQLitePath = o.SQLitePath
	}
	if o.Listen != "" {
		c.Server.Listen = o.Listen
	}
	return c.Validate()
}

// Validate checks the configuration. Errors name the offending field.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url: invalid URL %q", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout: must be positive"))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, errors.New("api.max_retries: must not be negative"))
	}
	if c.API.RetryDelay < 0 {
		errs = append(errs, errors.New("api.retry_delay: must not be negative"))
	}
	if c.API.HealthInterval <= 0 {
		errs = append(errs, errors.New("api.health_interval: must be positive"))
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path: required for sqlite backend"))
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn: required for postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}

	if c.Server.CardWidth <= 0 {
		errs = append(errs, errors.New("server.card_width: must be positive"))
	}
	if c.Deck.Category != "" && !domain.Category(c.Deck.Category).IsValid() {
		errs = append(errs, fmt.Errorf("deck.category: unknown category %q", c.Deck.Category))
	}
	if c.Deck.MinSafety < 0 || c.Deck.MinSafety > 100 {
		errs = append(errs, errors.New("deck.min_safety: must be within 0-100"))
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("currency: required"))
	}

	return errors.Join(errs...)
}
