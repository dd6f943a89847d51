package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds all actor configuration
type Config struct {
	// Actor settings
	ActorID string `mapstructure:"actor_id"`
	Seed    int64  `mapstructure:"seed"`

	// Memory settings
	MemoryLimit  int `mapstructure:"memory_limit"`
	WindowLength int `mapstructure:"window_length"`

	// Sampling
	BatchSize      int `mapstructure:"batch_size"`
	SampleInterval int `mapstructure:"sample_interval"`
	WarmupEntries  int `mapstructure:"warmup_entries"`

	// Episode management
	MaxEpisodes     int           `mapstructure:"max_episodes"`
	MaxEpisodeSteps int           `mapstructure:"max_episode_steps"`
	EpisodeTimeout  time.Duration `mapstructure:"episode_timeout"`

	// Stats server; empty disables it
	StatsAddr string `mapstructure:"stats_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		ActorID:         "actor-1",
		Seed:            0, // 0 means seed from the clock
		MemoryLimit:     100000,
		WindowLength:    1,
		BatchSize:       32,
		SampleInterval:  100,
		WarmupEntries:   1000,
		MaxEpisodes:     -1, // unlimited
		MaxEpisodeSteps: 500,
		EpisodeTimeout:  30 * time.Second,
		StatsAddr:       ":8080",
		LogLevel:        "info",
	}
}

// Load overlays values bound in v onto the defaults and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ActorID == "" {
		return fmt.Errorf("actor_id is required")
	}
	if c.MemoryLimit <= 0 {
		return fmt.Errorf("memory_limit must be positive")
	}
	if c.WindowLength <= 0 {
		return fmt.Errorf("window_length must be positive")
	}
	if c.WindowLength >= c.MemoryLimit {
		return fmt.Errorf("window_length must be smaller than memory_limit")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample_interval must be positive")
	}
	if c.WarmupEntries < 0 {
		return fmt.Errorf("warmup_entries must not be negative")
	}
	if c.MaxEpisodeSteps <= 0 {
		return fmt.Errorf("max_episode_steps must be positive")
	}
	if c.EpisodeTimeout <= 0 {
		return fmt.Errorf("episode_timeout must be positive")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
