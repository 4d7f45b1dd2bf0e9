package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cabinetlabs/seanced/internal/errs"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Audio struct {
		MaxFileSizeMB  int     `yaml:"max_file_size_mb"`
		ChunkSeconds   float64 `yaml:"chunk_seconds"`
		OverlapSeconds float64 `yaml:"overlap_seconds"`
	} `yaml:"audio"`

	ASR struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"asr"`

	Pipeline struct {
		Workers               int  `yaml:"workers"`
		RequestTimeoutSeconds int  `yaml:"request_timeout_seconds"`
		SegmentRetries        int  `yaml:"segment_retries"`
		StyleAttempts         int  `yaml:"style_attempts"`
		MailMinWords          int  `yaml:"mail_min_words"`
		MailMaxWords          int  `yaml:"mail_max_words"`
		TrimOverlap           bool `yaml:"trim_overlap"`
	} `yaml:"pipeline"`

	Storage struct {
		DataDir  string `yaml:"data_dir"`
		Database string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.Host = "0.0.0.0"
	cfg.Audio.MaxFileSizeMB = 200
	cfg.Audio.ChunkSeconds = 120
	cfg.Audio.OverlapSeconds = 4
	cfg.Pipeline.Workers = 4
	cfg.Pipeline.RequestTimeoutSeconds = 60
	cfg.Pipeline.SegmentRetries = 3
	cfg.Pipeline.StyleAttempts = 3
	cfg.Pipeline.MailMinWords = 550
	cfg.Pipeline.MailMaxWords = 1000
	cfg.Storage.DataDir = "data"
	cfg.Storage.Database = "data/sessions.db"
	cfg.Cleanup.IntervalMinutes = 30
	cfg.Cleanup.MaxAgeHours = 6
	return cfg
}

// Load reads the YAML config file at path (missing file is fine, defaults
// apply) and then lets environment variables override it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", errs.ErrConfig, path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrConfig, path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := envInt("PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := envInt("AUDIO_MAX_MB"); ok {
		cfg.Audio.MaxFileSizeMB = v
	}
	if v, ok := envFloat("AUDIO_CHUNK_MINUTES"); ok {
		cfg.Audio.ChunkSeconds = v * 60
	}
	if v, ok := envInt("REQUEST_TIMEOUT_SECONDS"); ok {
		cfg.Pipeline.RequestTimeoutSeconds = v
	}
	if v := os.Getenv("ASR_ENDPOINT"); v != "" {
		cfg.ASR.Endpoint = v
	}
	if v := os.Getenv("ASR_API_KEY"); v != "" {
		cfg.ASR.APIKey = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
}

// Validate rejects parameter combinations that would stall the segmenter or
// starve the pool.
func (c *Config) Validate() error {
	if c.Audio.ChunkSeconds <= 0 {
		return fmt.Errorf("%w: chunk_seconds must be positive, got %g", errs.ErrConfig, c.Audio.ChunkSeconds)
	}
	if c.Audio.OverlapSeconds < 0 || c.Audio.OverlapSeconds >= c.Audio.ChunkSeconds {
		return fmt.Errorf("%w: overlap_seconds must be in [0, chunk_seconds), got %g", errs.ErrConfig, c.Audio.OverlapSeconds)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", errs.ErrConfig, c.Pipeline.Workers)
	}
	if c.Pipeline.MailMinWords <= 0 || c.Pipeline.MailMaxWords < c.Pipeline.MailMinWords {
		return fmt.Errorf("%w: invalid mail word bounds [%d, %d]", errs.ErrConfig, c.Pipeline.MailMinWords, c.Pipeline.MailMaxWords)
	}
	return nil
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
