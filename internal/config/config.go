// Package config loads sitekeeper settings from defaults, an optional YAML
// file, a .env file and SITEKEEPER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sitekeeper/internal/kv"
	"sitekeeper/internal/site"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "sitekeeper.yaml"

type Config struct {
	Site       string        `yaml:"site"`
	DB         string        `yaml:"db"`
	Addr       string        `yaml:"addr"`
	QuotaBytes int64         `yaml:"quota_bytes"`
	NoticeTTL  time.Duration `yaml:"notice_ttl"`
	Watch      bool          `yaml:"watch"`
	Pages      site.Pages    `yaml:"pages"`
	Log        LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Site:       ".",
		DB:         filepath.Join(".sitekeeper", "content.db"),
		Addr:       "127.0.0.1:3335",
		QuotaBytes: kv.DefaultQuota,
		NoticeTTL:  3 * time.Second,
		Watch:      true,
		Pages:      site.DefaultPages(),
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SITEKEEPER_SITE"); v != "" {
		c.Site = v
	}
	if v := os.Getenv("SITEKEEPER_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("SITEKEEPER_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("SITEKEEPER_QUOTA"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("SITEKEEPER_QUOTA: %w", err)
		}
		c.QuotaBytes = n
	}
	if v := os.Getenv("SITEKEEPER_NOTICE_TTL"); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SITEKEEPER_NOTICE_TTL: %w", err)
		}
		c.NoticeTTL = d
	}
	if v := os.Getenv("SITEKEEPER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SITEKEEPER_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SITEKEEPER_LOG_JSON: %w", err)
		}
		c.Log.JSON = b
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
