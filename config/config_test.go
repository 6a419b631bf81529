package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "http", cfg.Server.Protocol)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.MaxUploadMB)
	assert.InDelta(t, 0.1, cfg.Analysis.TransientThreshold, 1e-12)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FINGERPRINT_SERVER_PORT", "8080")
	t.Setenv("FINGERPRINT_WORKERS", "2")

	v, err := New("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprint.yaml")
	content := "log_level: debug\nanalysis:\n  transient_threshold: 0.25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v, err := New(path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.InDelta(t, 0.25, cfg.Analysis.TransientThreshold, 1e-12)
}

func TestNewMissingConfigFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Workers: 1,
			Server:  ServerConfig{Protocol: "http", Port: "5000", MaxUploadMB: 1},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"bad protocol", func(c *Config) { c.Server.Protocol = "ftp" }},
		{"no port", func(c *Config) { c.Server.Port = "" }},
		{"https without certs", func(c *Config) { c.Server.Protocol = "https" }},
		{"no upload budget", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"negative threshold", func(c *Config) { c.Analysis.TransientThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
