// Package config resolves settings shared by every command: defaults, then a
// YAML config file, then OPENSPEC_* environment variables. Command-line flags
// are applied last by the cli package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "OPENSPEC_"

// Store backends.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreNATS   = "nats"
)

// Config captures all inputs after merging defaults, config file values,
// environment and CLI overrides.
type Config struct {
	ConfigPath string

	// Format is the document format; empty means guess from the file name.
	Format      string        `env:"FORMAT"`
	Store       string        `env:"STORE"`
	StorePath   string        `env:"STORE_PATH"`
	NATSURL     string        `env:"NATS_URL"`
	NATSBucket  string        `env:"NATS_BUCKET"`
	Addr        string        `env:"ADDR"`
	Validation  bool          `env:"VALIDATE"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"`
	MaxRetries  int           `env:"MAX_RETRIES"`
	Verbose     bool          `env:"VERBOSE"`

	// AllowedOrigins are browser origins serve accepts besides its own.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Store:       StoreFile,
		StorePath:   defaultStorePath(),
		NATSURL:     "nats://127.0.0.1:4222",
		NATSBucket:  "openspec",
		Addr:        "127.0.0.1:8080",
		Validation:  false,
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
	}
}

func defaultStorePath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "openspec", "store.json")
	}
	return filepath.Join(".openspec", "store.json")
}

// Load layers defaults, the file at path (when non-empty) and the process
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from OPENSPEC_* variables. A nil environ reads the
// process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// ApplyFile overrides fields from a YAML (or JSON) config file. Keys are
// matched ignoring case, dashes and underscores; unknown keys are rejected.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %v", path, err)
	}
	c.ConfigPath = path

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config file %q: %v", path, err)
	}

	for key, value := range raw {
		if err := c.applyKey(NormalizeKey(key), value); err != nil {
			if err == errUnknownKey {
				return fmt.Errorf("config file %q: unknown field %q", path, key)
			}
			return fmt.Errorf("config field %q: %v", key, err)
		}
	}
	return nil
}

var errUnknownKey = fmt.Errorf("unknown key")

func (c *Config) applyKey(key string, value any) error {
	var err error
	switch key {
	case "format":
		c.Format, err = ValueAsString(value)
	case "store":
		c.Store, err = ValueAsString(value)
	case "storepath":
		c.StorePath, err = ValueAsString(value)
	case "natsurl":
		c.NATSURL, err = ValueAsString(value)
	case "natsbucket":
		c.NATSBucket, err = ValueAsString(value)
	case "addr":
		c.Addr, err = ValueAsString(value)
	case "validate":
		c.Validation, err = ValueAsBool(value)
	case "httptimeout":
		var s string
		if s, err = ValueAsString(value); err == nil && s != "" {
			c.HTTPTimeout, err = time.ParseDuration(s)
		}
	case "maxretries":
		c.MaxRetries, err = ValueAsInt(value)
	case "verbose":
		c.Verbose, err = ValueAsBool(value)
	case "allowedorigins":
		c.AllowedOrigins, err = ValueAsStringSlice(value)
	default:
		return errUnknownKey
	}
	return err
}

func (c *Config) Normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.StorePath = strings.TrimSpace(c.StorePath)
	c.NATSURL = strings.TrimSpace(c.NATSURL)
	c.NATSBucket = strings.TrimSpace(c.NATSBucket)
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Format == "yml" {
		c.Format = "yaml"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Format {
	case "", "yaml", "json":
	default:
		return fmt.Errorf("unsupported format %q (allowed: yaml, json)", c.Format)
	}
	switch c.Store {
	case StoreFile:
		if c.StorePath == "" {
			return fmt.Errorf("store path is required for the file store")
		}
	case StoreMemory:
	case StoreNATS:
		if c.NATSURL == "" || c.NATSBucket == "" {
			return fmt.Errorf("nats store needs a url and a bucket")
		}
	default:
		return fmt.Errorf("unsupported store %q (allowed: file, memory, nats)", c.Store)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}
