// Package config provides Viper-based configuration loading for skirmish.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimConfig holds simulation driver settings.
type SimConfig struct {
	// TickInterval is the wall-clock period between driver steps.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// MaxSteps stops a run after this many steps; 0 runs until interrupted.
	MaxSteps int `mapstructure:"max_steps"`
	// Seed seeds the dice source; 0 selects the crypto source.
	Seed uint64 `mapstructure:"seed"`
}

// ContentConfig points at the YAML and Lua content directories.
type ContentConfig struct {
	AbilitiesDir string `mapstructure:"abilities_dir"`
	BehaviorsDir string `mapstructure:"behaviors_dir"`
	ScriptsDir   string `mapstructure:"scripts_dir"`
	ScenariosDir string `mapstructure:"scenarios_dir"`
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps opcodes per hook call; 0 uses the sandbox default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// MetricsConfig toggles OpenTelemetry instrumentation.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sim       SimConfig       `mapstructure:"sim"`
	Content   ContentConfig   `mapstructure:"content"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateSim(c.Sim),
		validateContent(c.Content),
		validateScripting(c.Scripting),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSim(s SimConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("sim.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.MaxSteps < 0 {
		errs = append(errs, fmt.Sprintf("sim.max_steps must be >= 0, got %d", s.MaxSteps))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.AbilitiesDir == "" {
		errs = append(errs, "content.abilities_dir must not be empty")
	}
	if c.BehaviorsDir == "" {
		errs = append(errs, "content.behaviors_dir must not be empty")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("sim.tick_interval", "16ms")
	v.SetDefault("sim.max_steps", 0)
	v.SetDefault("sim.seed", 0)

	v.SetDefault("content.abilities_dir", "content/abilities")
	v.SetDefault("content.behaviors_dir", "content/behaviors")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.scenarios_dir", "content/scenarios")

	v.SetDefault("scripting.instruction_limit", 0)

	v.SetDefault("metrics.enabled", false)
}
