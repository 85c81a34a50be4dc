package config

import (
	"fmt"
	"os"
	"time"

	"github.com/devrev/scoredb/internal/model"
	"gopkg.in/yaml.v3"
)

// EngineConfig holds transaction engine configuration
type EngineConfig struct {
	Protocol string `yaml:"protocol"`
}

// RetryConfig holds conflict retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// SimulationConfig holds workload simulator configuration
type SimulationConfig struct {
	Actors              int           `yaml:"actors"`
	SubmissionsPerActor int           `yaml:"submissions_per_actor"`
	ThinkTime           time.Duration `yaml:"think_time"`
	MaxDelta            int64         `yaml:"max_delta"`
	QueueSize           int           `yaml:"queue_size"`
}

// PlayerSeed is one initial leaderboard entry
type PlayerSeed struct {
	Player string `yaml:"player"`
	Score  int64  `yaml:"score"`
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the complete configuration for the engine and its
// leaderboard harness
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Retry      RetryConfig      `yaml:"retry"`
	Simulation SimulationConfig `yaml:"simulation"`
	Seed       []PlayerSeed     `yaml:"seed"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is present.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Engine.Protocol == "" {
		cfg.Engine.Protocol = string(model.ProtocolMVCC)
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseBackoff == 0 {
		cfg.Retry.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = 2 * time.Second
	}

	if cfg.Simulation.Actors == 0 {
		cfg.Simulation.Actors = 4
	}
	if cfg.Simulation.SubmissionsPerActor == 0 {
		cfg.Simulation.SubmissionsPerActor = 8
	}
	if cfg.Simulation.ThinkTime == 0 {
		cfg.Simulation.ThinkTime = 10 * time.Millisecond
	}
	if cfg.Simulation.MaxDelta == 0 {
		cfg.Simulation.MaxDelta = 100
	}
	if cfg.Simulation.QueueSize == 0 {
		cfg.Simulation.QueueSize = 256
	}

	if len(cfg.Seed) == 0 {
		cfg.Seed = []PlayerSeed{
			{Player: "user_1", Score: 100},
			{Player: "user_2", Score: 200},
			{Player: "user_3", Score: 150},
			{Player: "user_4", Score: 180},
			{Player: "user_5", Score: 120},
		}
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9100
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := model.ParseProtocol(c.Engine.Protocol); err != nil {
		return fmt.Errorf("engine.protocol: %w", err)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BaseBackoff > c.Retry.MaxBackoff {
		return fmt.Errorf("retry.base_backoff must not exceed retry.max_backoff")
	}
	if c.Simulation.Actors < 1 {
		return fmt.Errorf("simulation.actors must be at least 1")
	}
	if c.Simulation.MaxDelta < 1 {
		return fmt.Errorf("simulation.max_delta must be at least 1")
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}
	for i, p := range c.Seed {
		if p.Player == "" {
			return fmt.Errorf("seed[%d].player is required", i)
		}
	}
	return nil
}

// Protocol returns the parsed engine protocol. Call after Validate.
func (c *Config) Protocol() model.Protocol {
	p, _ := model.ParseProtocol(c.Engine.Protocol)
	return p
}
