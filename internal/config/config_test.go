package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetlabs/seanced/internal/errs"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 120.0, cfg.Audio.ChunkSeconds)
	assert.Equal(t, 4.0, cfg.Audio.OverlapSeconds)
	assert.Equal(t, 550, cfg.Pipeline.MailMinWords)
	assert.Equal(t, 1000, cfg.Pipeline.MailMaxWords)
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: 9090
audio:
  chunk_seconds: 90
  overlap_seconds: 2
pipeline:
  workers: 2
  trim_overlap: true
storage:
  data_dir: /tmp/seanced
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 90.0, cfg.Audio.ChunkSeconds)
	assert.Equal(t, 2.0, cfg.Audio.OverlapSeconds)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.TrimOverlap)
	assert.Equal(t, "/tmp/seanced", cfg.Storage.DataDir)
	// unset keys keep their defaults
	assert.Equal(t, 200, cfg.Audio.MaxFileSizeMB)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("AUDIO_MAX_MB", "50")
	t.Setenv("AUDIO_CHUNK_MINUTES", "1.5")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "120")
	t.Setenv("ASR_ENDPOINT", "https://asr.example.com/v1")
	t.Setenv("ASR_API_KEY", "secret")
	t.Setenv("DATA_DIR", "/var/lib/seanced")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Audio.MaxFileSizeMB)
	assert.Equal(t, 90.0, cfg.Audio.ChunkSeconds, "chunk minutes are converted to seconds")
	assert.Equal(t, 120, cfg.Pipeline.RequestTimeoutSeconds)
	assert.Equal(t, "https://asr.example.com/v1", cfg.ASR.Endpoint)
	assert.Equal(t, "secret", cfg.ASR.APIKey)
	assert.Equal(t, "/var/lib/seanced", cfg.Storage.DataDir)
}

func TestEnvIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk", func(c *Config) { c.Audio.ChunkSeconds = 0 }},
		{"negative overlap", func(c *Config) { c.Audio.OverlapSeconds = -1 }},
		{"overlap at chunk", func(c *Config) { c.Audio.OverlapSeconds = c.Audio.ChunkSeconds }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"inverted mail bounds", func(c *Config) {
			c.Pipeline.MailMinWords = 800
			c.Pipeline.MailMaxWords = 600
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrConfig))
		})
	}

	assert.NoError(t, Default().Validate())
}
