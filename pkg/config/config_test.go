package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 3*time.Second, cfg.Sfu.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Sfu.ResponseTimeout)
	assert.Equal(t, "none", cfg.Events.Mode)
	assert.False(t, cfg.RateLimiting.Enabled)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Address, cfg.Server.Address)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9090"
sfu:
  base_url: "http://sfu.internal:3000"
  response_timeout: 7s
events:
  mode: "redis"
  channel: "custom:events"
redis:
  address: "redis.internal:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "http://sfu.internal:3000", cfg.Sfu.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.Sfu.ResponseTimeout)
	assert.Equal(t, "redis", cfg.Events.Mode)
	assert.Equal(t, "custom:events", cfg.Events.Channel)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3*time.Second, cfg.Sfu.ConnectTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ROOMCAST_SERVER_ADDRESS", ":7070")
	t.Setenv("ROOMCAST_SFU_BASE_URL", "http://sfu.env:3000")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, "http://sfu.env:3000", cfg.Sfu.BaseURL)
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"zero ping interval", func(c *Config) { c.Signal.PingInterval = 0 }},
		{"empty sfu base url", func(c *Config) { c.Sfu.BaseURL = "" }},
		{"zero sfu connect timeout", func(c *Config) { c.Sfu.ConnectTimeout = 0 }},
		{"breaker enabled without thresholds", func(c *Config) {
			c.Sfu.CircuitBreaker.Enabled = true
			c.Sfu.CircuitBreaker.FailureThreshold = 0
		}},
		{"unknown events mode", func(c *Config) { c.Events.Mode = "kafka" }},
		{"http events without endpoint", func(c *Config) {
			c.Events.Mode = "http"
			c.Events.Endpoint = ""
		}},
		{"redis events without channel", func(c *Config) {
			c.Events.Mode = "redis"
			c.Events.Channel = ""
		}},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }},
		{"tracing sample rate out of range", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 2.0
		}},
		{"rate limiting enabled with zero rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.WebSocket.MessagesPerSecond = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_RateLimitingDisabledAllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.WebSocket.MessagesPerSecond = 0
	cfg.RateLimiting.WebSocket.Burst = 0

	assert.NoError(t, cfg.Validate())
}
