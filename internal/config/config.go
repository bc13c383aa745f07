package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"toki/internal/paths"
)

// Config represents the complete toki configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Tracker    TrackerConfig    `json:"tracker" mapstructure:"tracker"`
	Review     ReviewConfig     `json:"review" mapstructure:"review"`
	Embeddings EmbeddingsConfig `json:"embeddings" mapstructure:"embeddings"`
	Export     ExportConfig     `json:"export" mapstructure:"export"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// TrackerConfig contains daemon tick loop configuration
type TrackerConfig struct {
	TickIntervalSeconds int `json:"tickIntervalSeconds" mapstructure:"tickIntervalSeconds"`
}

// ReviewConfig contains review engine tunables
type ReviewConfig struct {
	MinBlockMinutes int `json:"minBlockMinutes" mapstructure:"minBlockMinutes"`
	MergeGapMinutes int `json:"mergeGapMinutes" mapstructure:"mergeGapMinutes"`
}

// EmbeddingsConfig contains embedding service configuration
type EmbeddingsConfig struct {
	Dimension int    `json:"dimension" mapstructure:"dimension"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
}

// ExportConfig contains data export configuration
type ExportConfig struct {
	CompressionLevel int `json:"compressionLevel" mapstructure:"compressionLevel"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Tracker: TrackerConfig{
			TickIntervalSeconds: 5,
		},
		Review: ReviewConfig{
			MinBlockMinutes: 5,
			MergeGapMinutes: 10,
		},
		Embeddings: EmbeddingsConfig{
			Dimension: 384,
		},
		Export: ExportConfig{
			CompressionLevel: 3,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load reads the config file from the data directory, falling back to
// defaults when the file does not exist
func Load(dataDir string) (*Config, error) {
	cfgPath := paths.ConfigPath(dataDir)

	v := viper.New()
	v.SetConfigFile(cfgPath)
	v.SetConfigType("json")

	cfg := DefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Tracker.TickIntervalSeconds <= 0 {
		return &ConfigError{Field: "tracker.tickIntervalSeconds", Reason: "must be positive"}
	}
	if c.Review.MinBlockMinutes < 0 {
		return &ConfigError{Field: "review.minBlockMinutes", Reason: "must be non-negative"}
	}
	if c.Review.MergeGapMinutes <= 0 {
		return &ConfigError{Field: "review.mergeGapMinutes", Reason: "must be positive"}
	}
	if c.Embeddings.Dimension <= 0 {
		return &ConfigError{Field: "embeddings.dimension", Reason: "must be positive"}
	}
	return nil
}

// Save writes the configuration to the data directory as indented JSON
func (c *Config) Save(dataDir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(paths.ConfigPath(dataDir), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ConfigError describes an invalid configuration value
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Field, e.Reason)
}
