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
	assert.Equal(t, 30*time.Second, cfg.Live.GracePeriod)
	assert.Equal(t, 3, cfg.Live.ReconnectAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Playback.MaxWindow)
	assert.Equal(t, "memory", cfg.Metadata.Backend)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Playback.Workers, cfg.Playback.Workers)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  address: ":9091"
live:
  grace_period: 10s
playback:
  max_window: 5m
  workers: 2
metadata:
  backend: memory
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9091", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Live.GracePeriod)
	assert.Equal(t, 5*time.Minute, cfg.Playback.MaxWindow)
	assert.Equal(t, 2, cfg.Playback.Workers)
	// untouched defaults survive
	assert.Equal(t, 16, cfg.Playback.QueueSize)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STREAMGATE_SERVER_ADDRESS", ":7000")
	t.Setenv("STREAMGATE_PLAYBACK_DIR", "/tmp/clips")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, "/tmp/clips", cfg.Playback.OutputDir)
}

func TestValidate_AcceptsSeedCameras(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metadata.Cameras = []CameraSeedConfig{
		{ID: "cam-1", RtspURL: "rtsp://host/cam1.264"},
		{ID: "cam-2", RtmpURL: "rtmp://host/live/cam2"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty server address", func(c *Config) { c.Server.Address = "" }},
		{"invalid public base url", func(c *Config) { c.Server.PublicBaseURL = "rtsp://gateway" }},
		{"zero connect timeout", func(c *Config) { c.Live.ConnectTimeout = 0 }},
		{"negative reconnect attempts", func(c *Config) { c.Live.ReconnectAttempts = -1 }},
		{"zero max window", func(c *Config) { c.Playback.MaxWindow = 0 }},
		{"zero workers", func(c *Config) { c.Playback.Workers = 0 }},
		{"unknown metadata backend", func(c *Config) { c.Metadata.Backend = "oracle" }},
		{"seed camera with bad id", func(c *Config) {
			c.Metadata.Cameras = []CameraSeedConfig{{ID: "cam/1", RtspURL: "rtsp://host/cam1.264"}}
		}},
		{"seed camera without source", func(c *Config) {
			c.Metadata.Cameras = []CameraSeedConfig{{ID: "cam-1"}}
		}},
		{"seed camera with http source", func(c *Config) {
			c.Metadata.Cameras = []CameraSeedConfig{{ID: "cam-1", RtspURL: "http://host/cam1.264"}}
		}},
		{"postgres without host", func(c *Config) { c.Metadata.Backend = "postgres"; c.Metadata.Host = "" }},
		{"redis cache without address", func(c *Config) { c.Cache.Redis = true; c.Cache.Address = "" }},
		{"events without nats url", func(c *Config) { c.Events.Enabled = true; c.Events.NATSURL = "" }},
		{"rate limiting without rps", func(c *Config) { c.RateLimiting.Enabled = true; c.RateLimiting.RequestsPerSecond = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
