// Package config loads service settings.
//
// Precedence, lowest first: built-in defaults, the YAML config file, a
// .env file, process environment variables (LUNCHDESK_*), command-line
// flags. Values from .env never override variables already set in the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LUNCHDESK_"

// Config holds service settings.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// MenuCacheTTL bounds how stale the menu shown at flow entry may be.
	// Commits always read the menu from the database.
	MenuCacheTTL time.Duration `yaml:"menu_cache_ttl"`

	// SessionIdleTimeout is how long a flow may wait for an answer.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`

	// ReaperInterval is how often idle flows are looked for.
	ReaperInterval time.Duration `yaml:"reaper_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:           "lunchdesk.db",
		Listen:             ":8080",
		MenuCacheTTL:       30 * time.Second,
		SessionIdleTimeout: 10 * time.Minute,
		ReaperInterval:     time.Minute,
		LogLevel:           "info",
	}
}

// Load builds a Config from the YAML file at path and the environment.
//
// An empty path skips the file. An empty envFile skips .env loading; a
// missing .env file is not an error, a missing config file is.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("DATABASE", &c.Database)
	str("LISTEN", &c.Listen)
	str("LOG_LEVEL", &c.LogLevel)
	if err := dur("MENU_CACHE_TTL", &c.MenuCacheTTL); err != nil {
		return err
	}
	if err := dur("SESSION_IDLE_TIMEOUT", &c.SessionIdleTimeout); err != nil {
		return err
	}
	return dur("REAPER_INTERVAL", &c.ReaperInterval)
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("config: database is required")
	}
	if c.MenuCacheTTL < 0 {
		return errors.New("config: menu_cache_ttl must not be negative")
	}
	if c.SessionIdleTimeout <= 0 {
		return errors.New("config: session_idle_timeout must be positive")
	}
	if c.ReaperInterval <= 0 {
		return errors.New("config: reaper_interval must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", name)
	}
}
