// Package config loads stagehand configuration from TOML or YAML files,
// STAGEHAND_* environment variables and command-line flags.
//
// Precedence, highest first: flags bound to the Viper instance, environment,
// config file, built-in defaults.
package config

import (
	"time"

	"go.uber.org/zap"

	"github.com/dshills/stagehand/internal/git"
)

// EnvPrefix is the prefix of environment variable overrides, so that
// git.command_timeout is read from STAGEHAND_GIT_COMMAND_TIMEOUT.
const EnvPrefix = "STAGEHAND"

// Config is the complete configuration.
type Config struct {
	Git       GitConfig       `mapstructure:"git"`
	Status    StatusConfig    `mapstructure:"status"`
	Log       LogConfig       `mapstructure:"log"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GitConfig controls how the git binary is run.
type GitConfig struct {
	// Binary is the git executable name or path.
	Binary string `mapstructure:"binary" validate:"required"`

	// CommandTimeout bounds each git command. Zero disables the limit.
	CommandTimeout time.Duration `mapstructure:"command_timeout" validate:"gte=0"`

	// Env is appended to the environment of every git process.
	Env []string `mapstructure:"env" validate:"dive,contains=="`
}

// StatusConfig selects the status scanner.
type StatusConfig struct {
	Scanner string `mapstructure:"scanner" validate:"oneof=porcelain gogit"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=auto console json"`
	File   string `mapstructure:"file"`
}

// WatchConfig configures the control directory watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file" validate:"required_if=Enabled true"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Git: GitConfig{
			Binary:         "git",
			CommandTimeout: 2 * time.Minute,
			Env:            append([]string(nil), git.DefaultEnv...),
		},
		Status: StatusConfig{
			Scanner: git.ScannerPorcelain,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "auto",
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			File: "stagehand-traces.jsonl",
		},
	}
}

// ExecConfig converts the git section into executor settings.
func (c Config) ExecConfig(logger *zap.Logger) git.ExecConfig {
	return git.ExecConfig{
		Binary:  c.Git.Binary,
		Timeout: c.Git.CommandTimeout,
		Env:     c.Git.Env,
		Logger:  logger,
	}
}
