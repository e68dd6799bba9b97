// Package config holds the controller configuration and its layered loading:
// defaults, then an optional YAML file, then environment variables. Flags are
// applied last by the CLI.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultAPIAddr         = "127.0.0.1:7001"
	DefaultProxyAddr       = "127.0.0.1:8080"
	DefaultMaxCaptured     = 500
	DefaultDispatchTimeout = 30 * time.Second
)

// Duration wraps time.Duration so YAML values like "30s" parse naturally.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full controller configuration.
type Config struct {
	// APIAddr is the listen address of the control API.
	APIAddr string `yaml:"api_addr"`

	// ProxyAddr is the listen address of the intercept proxy.
	ProxyAddr string `yaml:"proxy_addr"`

	// MaxCaptured bounds the capture store.
	MaxCaptured int `yaml:"max_captured"`

	// DispatchTimeout bounds a single replay dispatch.
	DispatchTimeout Duration `yaml:"dispatch_timeout"`

	// InsecureTLS skips certificate verification on secure replays.
	InsecureTLS bool `yaml:"insecure_tls"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIAddr:         DefaultAPIAddr,
		ProxyAddr:       DefaultProxyAddr,
		MaxCaptured:     DefaultMaxCaptured,
		DispatchTimeout: Duration(DefaultDispatchTimeout),
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds the effective configuration: defaults, overlaid with the YAML
// file at path (if path is non-empty), overlaid with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays POCGEN_* environment variables onto cfg.
func (c *Config) applyEnv() {
	if v := os.Getenv("POCGEN_API_ADDR"); v != "" {
		c.APIAddr = v
	}
	if v := os.Getenv("POCGEN_PROXY_ADDR"); v != "" {
		c.ProxyAddr = v
	}
	if v := os.Getenv("POCGEN_MAX_CAPTURED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxCaptured = n
		}
	}
	if v := os.Getenv("POCGEN_DISPATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DispatchTimeout = Duration(d)
		}
	}
	if v := os.Getenv("POCGEN_INSECURE_TLS"); v != "" {
		c.InsecureTLS = v == "true" || v == "1"
	}
	if v := os.Getenv("POCGEN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("POCGEN_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

// Validate reports configuration errors a running controller could not
// recover from.
func (c *Config) Validate() error {
	if c.MaxCaptured <= 0 {
		return fmt.Errorf("max_captured must be positive, got %d", c.MaxCaptured)
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("dispatch_timeout must be positive, got %s", time.Duration(c.DispatchTimeout))
	}
	if _, _, err := net.SplitHostPort(c.APIAddr); err != nil {
		return fmt.Errorf("invalid api_addr %q: %w", c.APIAddr, err)
	}
	if _, _, err := net.SplitHostPort(c.ProxyAddr); err != nil {
		return fmt.Errorf("invalid proxy_addr %q: %w", c.ProxyAddr, err)
	}
	return nil
}
