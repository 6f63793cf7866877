// Package config provides configuration management for the transfer engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"

	"github.com/blockgate/blockgate/internal/constants"
)

// Config holds the engine tuning knobs.
//
// INI format:
//
//	[engine]
//	negotiation_timeout_secs = 30
//	staleness_threshold_secs = 35
//	default_remaining_secs = 3600
//	speed_samples = 5
//
//	[upload]
//	max_retries = 3
//	retry_unit_secs = 1
//	block_timeout_secs = 300
//	thumbnail_timeout_secs = 60
type Config struct {
	Engine EngineConfig
	Upload UploadConfig
}

// EngineConfig contains scheduler and reporting settings.
type EngineConfig struct {
	// NegotiationTimeoutSecs bounds the wait for upload-URL and folder
	// replies. Default: 30
	NegotiationTimeoutSecs int `ini:"negotiation_timeout_secs"`

	// StalenessThresholdSecs is the age after which an outstanding request
	// is presumed lost. Default: 35
	StalenessThresholdSecs int `ini:"staleness_threshold_secs"`

	// DefaultRemainingSecs is the remaining-time floor reported when
	// throughput is negligible. Presentation heuristic. Default: 3600
	DefaultRemainingSecs int64 `ini:"default_remaining_secs"`

	// SpeedSamples is the rolling window length for throughput smoothing.
	// Default: 5
	SpeedSamples int `ini:"speed_samples"`
}

// UploadConfig contains the block transport settings.
type UploadConfig struct {
	// MaxRetries is the total attempts per block. Default: 3
	MaxRetries int `ini:"max_retries"`

	// RetryUnitSecs is the linear backoff unit; attempt N waits N units.
	// Default: 1
	RetryUnitSecs int `ini:"retry_unit_secs"`

	// BlockTimeoutSecs is the per-attempt block PUT timeout. Default: 300
	BlockTimeoutSecs int `ini:"block_timeout_secs"`

	// ThumbnailTimeoutSecs is the per-attempt thumbnail PUT timeout.
	// Default: 60
	ThumbnailTimeoutSecs int `ini:"thumbnail_timeout_secs"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			NegotiationTimeoutSecs: int(constants.NegotiationTimeout / time.Second),
			StalenessThresholdSecs: int(constants.StalenessThreshold / time.Second),
			DefaultRemainingSecs:   constants.DefaultRemainingSecs,
			SpeedSamples:           constants.SpeedSampleWindow,
		},
		Upload: UploadConfig{
			MaxRetries:           constants.UploadMaxRetries,
			RetryUnitSecs:        int(constants.UploadRetryUnit / time.Second),
			BlockTimeoutSecs:     int(constants.BlockUploadTimeout / time.Second),
			ThumbnailTimeoutSecs: int(constants.ThumbnailUploadTimeout / time.Second),
		},
	}
}

// NegotiationTimeout returns the configured negotiation wait.
func (c *Config) NegotiationTimeout() time.Duration {
	return time.Duration(c.Engine.NegotiationTimeoutSecs) * time.Second
}

// StalenessThreshold returns the configured request staleness window.
func (c *Config) StalenessThreshold() time.Duration {
	return time.Duration(c.Engine.StalenessThresholdSecs) * time.Second
}

// RetryUnit returns the configured linear backoff unit.
func (c *Config) RetryUnit() time.Duration {
	return time.Duration(c.Upload.RetryUnitSecs) * time.Second
}

// BlockTimeout returns the per-attempt block upload timeout.
func (c *Config) BlockTimeout() time.Duration {
	return time.Duration(c.Upload.BlockTimeoutSecs) * time.Second
}

// ThumbnailTimeout returns the per-attempt thumbnail upload timeout.
func (c *Config) ThumbnailTimeout() time.Duration {
	return time.Duration(c.Upload.ThumbnailTimeoutSecs) * time.Second
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Engine.NegotiationTimeoutSecs <= 0 {
		return fmt.Errorf("negotiation_timeout_secs must be positive, got %d", c.Engine.NegotiationTimeoutSecs)
	}
	if c.Engine.StalenessThresholdSecs < c.Engine.NegotiationTimeoutSecs {
		return fmt.Errorf("staleness_threshold_secs (%d) must be at least negotiation_timeout_secs (%d)",
			c.Engine.StalenessThresholdSecs, c.Engine.NegotiationTimeoutSecs)
	}
	if c.Engine.SpeedSamples <= 0 {
		return fmt.Errorf("speed_samples must be positive, got %d", c.Engine.SpeedSamples)
	}
	if c.Upload.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.Upload.MaxRetries)
	}
	return nil
}

// Load reads configuration from an INI file, applying defaults for any
// missing keys. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := file.Section("engine").MapTo(&cfg.Engine); err != nil {
		return nil, fmt.Errorf("failed to parse [engine] section: %w", err)
	}
	if err := file.Section("upload").MapTo(&cfg.Upload); err != nil {
		return nil, fmt.Errorf("failed to parse [upload] section: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to an INI file, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file := ini.Empty()
	if err := file.Section("engine").ReflectFrom(&c.Engine); err != nil {
		return fmt.Errorf("failed to encode [engine] section: %w", err)
	}
	if err := file.Section("upload").ReflectFrom(&c.Upload); err != nil {
		return fmt.Errorf("failed to encode [upload] section: %w", err)
	}

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
