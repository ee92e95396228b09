package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/montplusa/filler-battle-rl/pkg/ai/actorcritic"
	"github.com/montplusa/filler-battle-rl/pkg/env"
	"github.com/montplusa/filler-battle-rl/pkg/training"
	"github.com/spf13/viper"
)

// Config holds all training configuration
type Config struct {
	// Board
	Rows int `mapstructure:"rows"`
	Cols int `mapstructure:"cols"`

	// Training loop
	Episodes       int     `mapstructure:"episodes"`
	Window         int     `mapstructure:"window"`
	InitialBest    float64 `mapstructure:"initial-best"`
	MaxSteps       int     `mapstructure:"max-steps"`
	ReportInterval int     `mapstructure:"report-interval"`
	Evaluate       bool    `mapstructure:"evaluate"`

	// Agents
	HiddenLayers []int   `mapstructure:"hidden-layers"`
	Alpha        float64 `mapstructure:"alpha"`
	Gamma        float64 `mapstructure:"gamma"`
	ClipDelta    float64 `mapstructure:"clip-delta"`
	Optimizer    string  `mapstructure:"optimizer"`
	Seed         uint64  `mapstructure:"seed"`

	// Models
	Model1        string `mapstructure:"model-1"`
	Model2        string `mapstructure:"model-2"`
	CheckpointDir string `mapstructure:"checkpoint-dir"`
	Init1         string `mapstructure:"init-1"`
	Init2         string `mapstructure:"init-2"`
	Resume        bool   `mapstructure:"resume"`
	ResultPath    string `mapstructure:"result"`

	Rewards env.Rewards `mapstructure:"rewards"`

	// Logging
	LogLevel  string `mapstructure:"log-level"`
	LogPretty bool   `mapstructure:"log-pretty"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	session := training.DefaultConfig()
	return &Config{
		Rows:           7,
		Cols:           6,
		Episodes:       1000,
		Window:         session.Window,
		InitialBest:    session.InitialBest,
		MaxSteps:       session.MaxSteps,
		ReportInterval: session.ReportInterval,
		HiddenLayers:   []int{128, 64},
		Alpha:          1e-5,
		Gamma:          0.99,
		Optimizer:      "adam",
		Seed:           1,
		Model1:         "Model_1",
		Model2:         "Model_2",
		CheckpointDir:  "models",
		ResultPath:     "scores.json",
		Rewards:        env.DefaultRewards(),
		LogLevel:       "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("board must be at least 1x1, got %dx%d", c.Rows, c.Cols)
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive")
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max-steps must not be negative")
	}
	if len(c.HiddenLayers) == 0 {
		return fmt.Errorf("hidden-layers is required")
	}
	if c.Alpha <= 0 {
		return fmt.Errorf("alpha must be positive")
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1]")
	}
	if c.Model1 == "" || c.Model2 == "" {
		return fmt.Errorf("model names are required")
	}
	if c.Model1 == c.Model2 {
		return fmt.Errorf("model names must differ, both are %q", c.Model1)
	}
	switch c.Optimizer {
	case "adam", "sgd":
	default:
		return fmt.Errorf("unknown optimizer %q", c.Optimizer)
	}
	return nil
}

// Agent returns the agent configuration for player 1 or 2
func (c *Config) Agent(player int) actorcritic.Config {
	name := c.Model1
	if player == 2 {
		name = c.Model2
	}
	return actorcritic.Config{
		Name:           name,
		Actions:        c.Cols,
		HiddenLayers:   c.HiddenLayers,
		Alpha:          c.Alpha,
		Gamma:          c.Gamma,
		ClipDelta:      c.ClipDelta,
		Optimizer:      c.Optimizer,
		Seed:           c.Seed + uint64(player)*1000,
		CheckpointPath: filepath.Join(c.CheckpointDir, name+".json"),
		FinalPath:      filepath.Join(c.CheckpointDir, name+"_final.json"),
	}
}

// InitPath returns the warm-start weights for player 1 or 2, if any
func (c *Config) InitPath(player int) string {
	if player == 2 {
		return c.Init2
	}
	return c.Init1
}

// Session returns the training loop configuration
func (c *Config) Session() training.Config {
	return training.Config{
		Window:         c.Window,
		InitialBest:    c.InitialBest,
		MaxSteps:       c.MaxSteps,
		Learn:          !c.Evaluate,
		ReportInterval: c.ReportInterval,
	}
}

// Load builds the configuration from defaults, an optional config file,
// FILLER_* environment variables and any flags already bound to v.
func Load(v *viper.Viper, file string) (*Config, error) {
	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix("FILLER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment variables are seen
// by Unmarshal.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("rows", c.Rows)
	v.SetDefault("cols", c.Cols)
	v.SetDefault("episodes", c.Episodes)
	v.SetDefault("window", c.Window)
	v.SetDefault("initial-best", c.InitialBest)
	v.SetDefault("max-steps", c.MaxSteps)
	v.SetDefault("report-interval", c.ReportInterval)
	v.SetDefault("evaluate", c.Evaluate)
	v.SetDefault("hidden-layers", c.HiddenLayers)
	v.SetDefault("alpha", c.Alpha)
	v.SetDefault("gamma", c.Gamma)
	v.SetDefault("clip-delta", c.ClipDelta)
	v.SetDefault("optimizer", c.Optimizer)
	v.SetDefault("seed", c.Seed)
	v.SetDefault("model-1", c.Model1)
	v.SetDefault("model-2", c.Model2)
	v.SetDefault("checkpoint-dir", c.CheckpointDir)
	v.SetDefault("init-1", c.Init1)
	v.SetDefault("init-2", c.Init2)
	v.SetDefault("resume", c.Resume)
	v.SetDefault("result", c.ResultPath)
	v.SetDefault("rewards.win", c.Rewards.Win)
	v.SetDefault("rewards.loss", c.Rewards.Loss)
	v.SetDefault("rewards.draw", c.Rewards.Draw)
	v.SetDefault("rewards.illegal", c.Rewards.Illegal)
	v.SetDefault("log-level", c.LogLevel)
	v.SetDefault("log-pretty", c.LogPretty)
}
