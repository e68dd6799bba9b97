package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultAPIAddr, cfg.APIAddr)
	assert.Equal(t, DefaultProxyAddr, cfg.ProxyAddr)
	assert.Equal(t, DefaultMaxCaptured, cfg.MaxCaptured)
	assert.Equal(t, Duration(DefaultDispatchTimeout), cfg.DispatchTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pocgen.yaml")
	data := `
api_addr: 0.0.0.0:9001
proxy_addr: 0.0.0.0:9080
max_captured: 42
dispatch_timeout: 5s
insecure_tls: true
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9001", cfg.APIAddr)
	assert.Equal(t, "0.0.0.0:9080", cfg.ProxyAddr)
	assert.Equal(t, 42, cfg.MaxCaptured)
	assert.Equal(t, Duration(5*time.Second), cfg.DispatchTimeout)
	assert.True(t, cfg.InsecureTLS)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pocgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_captured: 42\n"), 0o644))

	t.Setenv("POCGEN_MAX_CAPTURED", "99")
	t.Setenv("POCGEN_API_ADDR", "127.0.0.1:7777")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 99, cfg.MaxCaptured)
	assert.Equal(t, "127.0.0.1:7777", cfg.APIAddr)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_captured: [oops\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.MaxCaptured = 0 }},
		{"negative capacity", func(c *Config) { c.MaxCaptured = -1 }},
		{"zero timeout", func(c *Config) { c.DispatchTimeout = 0 }},
		{"bad api addr", func(c *Config) { c.APIAddr = "not-an-addr" }},
		{"bad proxy addr", func(c *Config) { c.ProxyAddr = "no-port" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
