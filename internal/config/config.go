// Package config loads configuration from an optional YAML file and
// environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all ghsbrowse configuration.
type Config struct {
	// Server
	Server   string        `yaml:"server"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Metrics listener; empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	// Uploads
	MaxUploadMB   int64         `yaml:"max_upload_mb"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Display
	MtimeFromNow bool `yaml:"mtime_from_now"`
	ShowHidden   bool `yaml:"show_hidden"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:        "http://localhost:8000",
		Timeout:       30 * time.Second,
		LogLevel:      "info",
		LogFormat:     "console",
		MaxUploadMB:   1024,
		WatchDebounce: 500 * time.Millisecond,
	}
}

// DefaultPath is where the config file is looked up when GHS_CONFIG is
// not set.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ghsbrowse", "config.yml")
}

// Load reads the config file at path (a missing file is fine), then
// applies environment overrides. An empty path means GHS_CONFIG or
// DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = envOr("GHS_CONFIG", DefaultPath())
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg.Server = envOr("GHS_SERVER", cfg.Server)
	cfg.Username = envOr("GHS_USER", cfg.Username)
	cfg.Password = envOr("GHS_PASSWORD", cfg.Password)
	cfg.Timeout = envDuration("GHS_TIMEOUT", cfg.Timeout)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)
	cfg.MetricsAddr = envOr("METRICS_ADDR", cfg.MetricsAddr)
	cfg.MaxUploadMB = envInt64("GHS_MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.WatchDebounce = envDuration("GHS_WATCH_DEBOUNCE", cfg.WatchDebounce)
	cfg.MtimeFromNow = envBool("GHS_MTIME_FROM_NOW", cfg.MtimeFromNow)
	cfg.ShowHidden = envBool("GHS_SHOW_HIDDEN", cfg.ShowHidden)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail later.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("GHS_SERVER %q must be an http or https URL", c.Server)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("GHS_MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("GHS_TIMEOUT must be positive, got %s", c.Timeout)
	}
	return nil
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
