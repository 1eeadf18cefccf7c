package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/docsmcp/docs-mcp-server/internal/logging"
)

const envPrefix = "DOCSMCP_"

// Config is the process-wide configuration, loaded once at startup and passed
// explicitly to every component.
type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Normalize NormalizeConfig `toml:"normalize"`
	Ingest    IngestConfig    `toml:"ingest"`
	Search    SearchConfig    `toml:"search"`
	Server    ServerConfig    `toml:"server"`
	Logging   logging.Config  `toml:"logging"`
}

// EngineConfig selects and configures the search engine backend
type EngineConfig struct {
	Backend     string            `toml:"backend" validate:"oneof=bleve meilisearch"`
	Index       string            `toml:"index" validate:"required"`
	Bleve       BleveConfig       `toml:"bleve"`
	Meilisearch MeilisearchConfig `toml:"meilisearch"`
}

type BleveConfig struct {
	Path string `toml:"path"`
}

type MeilisearchConfig struct {
	URL     string `toml:"url"`
	APIKey  string `toml:"api_key"`
	Timeout string `toml:"timeout"` // e.g. "10s"
}

type NormalizeConfig struct {
	MaxContentChars int    `toml:"max_content_chars" validate:"gt=0"`
	DefaultModule   string `toml:"default_module" validate:"required"`
}

type IngestConfig struct {
	Source       string `toml:"source"`      // JSONL file used by refresh_documentation_index
	BatchSize    int    `toml:"batch_size" validate:"gt=0"`
	Concurrency  int    `toml:"concurrency" validate:"gt=0"`
	PollAttempts int    `toml:"poll_attempts" validate:"gt=0"`
	PollInterval string `toml:"poll_interval"` // e.g. "1s"
	LedgerPath   string `toml:"ledger_path"`   // empty disables the run ledger
}

type SearchConfig struct {
	DefaultLimit int `toml:"default_limit" validate:"gt=0"`
	MaxLimit     int `toml:"max_limit" validate:"gtefield=DefaultLimit"`
	PreviewChars int `toml:"preview_chars" validate:"gt=0"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
}

// NewDefaultConfig returns the built-in defaults
func NewDefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Backend: "bleve",
			Index:   "docs",
			Bleve: BleveConfig{
				Path: "./data/search/index",
			},
			Meilisearch: MeilisearchConfig{
				URL:     "http://localhost:7700",
				Timeout: "10s",
			},
		},
		Normalize: NormalizeConfig{
			MaxContentChars: 2000,
			DefaultModule:   "unknown",
		},
		Ingest: IngestConfig{
			Source:       "./data/docs/documents.jsonl",
			BatchSize:    100,
			Concurrency:  1,
			PollAttempts: 30,
			PollInterval: "1s",
			LedgerPath:   "./data/ledger",
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
			PreviewChars: 200,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads an optional .env file, then merges TOML files over the defaults
// (later files win), then applies DOCSMCP_* environment overrides.
func Load(envFile string, paths ...string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Ingest.PollIntervalDuration(); err != nil {
		return fmt.Errorf("invalid configuration: ingest.poll_interval: %w", err)
	}
	if _, err := c.Engine.Meilisearch.TimeoutDuration(); err != nil {
		return fmt.Errorf("invalid configuration: engine.meilisearch.timeout: %w", err)
	}
	return nil
}

// PollIntervalDuration parses the poll interval, defaulting to one second
func (c IngestConfig) PollIntervalDuration() (time.Duration, error) {
	return parseDuration(c.PollInterval, time.Second)
}

// TimeoutDuration parses the HTTP timeout, defaulting to ten seconds
func (c MeilisearchConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(c.Timeout, 10*time.Second)
}

// Address returns host:port for the HTTP listener
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", value)
	}
	return d, nil
}

// applyEnvOverrides applies DOCSMCP_* environment variables over file values
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Engine.Backend, "ENGINE_BACKEND")
	setString(&cfg.Engine.Index, "ENGINE_INDEX")
	setString(&cfg.Engine.Bleve.Path, "BLEVE_PATH")
	setString(&cfg.Engine.Meilisearch.URL, "MEILI_URL")
	setString(&cfg.Engine.Meilisearch.APIKey, "MEILI_API_KEY")
	setString(&cfg.Engine.Meilisearch.Timeout, "MEILI_TIMEOUT")

	setInt(&cfg.Normalize.MaxContentChars, "NORMALIZE_MAX_CONTENT_CHARS")
	setString(&cfg.Normalize.DefaultModule, "NORMALIZE_DEFAULT_MODULE")

	setString(&cfg.Ingest.Source, "INGEST_SOURCE")
	setInt(&cfg.Ingest.BatchSize, "INGEST_BATCH_SIZE")
	setInt(&cfg.Ingest.Concurrency, "INGEST_CONCURRENCY")
	setInt(&cfg.Ingest.PollAttempts, "INGEST_POLL_ATTEMPTS")
	setString(&cfg.Ingest.PollInterval, "INGEST_POLL_INTERVAL")
	setString(&cfg.Ingest.LedgerPath, "INGEST_LEDGER_PATH")

	setInt(&cfg.Search.DefaultLimit, "SEARCH_DEFAULT_LIMIT")
	setInt(&cfg.Search.MaxLimit, "SEARCH_MAX_LIMIT")
	setInt(&cfg.Search.PreviewChars, "SEARCH_PREVIEW_CHARS")

	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if value := os.Getenv(envPrefix + key); value != "" {
		*dst = value
	}
}

// setInt ignores values that do not parse, like the string setter ignores empty ones
func setInt(dst *int, key string) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return
	}
	if n, err := strconv.Atoi(value); err == nil {
		*dst = n
	}
}
