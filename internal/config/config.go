// Package config loads the cppmedic configuration file. Environment
// variables are loaded from .env first and expanded inside the raw YAML,
// then defaults are applied after unmarshalling.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

// Defaults applied when fields are absent or out of range.
const (
	DefaultMaxAttempts = 3
	MaxAttemptsCeiling = 10
	DefaultFixTimeout  = 30 * time.Second
	DefaultDebounce    = 500 * time.Millisecond
	DefaultHistoryPath = ".cppmedic/history.db"
)

// Config is the top-level configuration.
type Config struct {
	Patterns string        `yaml:"patterns,omitempty"` // pattern database path; empty selects the built-in table
	Build    BuildConfig   `yaml:"build"`
	History  HistoryConfig `yaml:"history"`
	Watch    WatchConfig   `yaml:"watch"`
}

// BuildConfig tunes the recovery controller.
type BuildConfig struct {
	MaxAttempts      int    `yaml:"max_attempts,omitempty"`
	ConfigureCommand string `yaml:"configure_command,omitempty"` // shell-style override, e.g. "cmake -B build -G Ninja"
	BuildCommand     string `yaml:"build_command,omitempty"`
	FixTimeout       string `yaml:"fix_timeout,omitempty"` // duration string, e.g. "30s"
}

// HistoryConfig controls the run ledger.
type HistoryConfig struct {
	Path     string `yaml:"path,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"` // duration string
}

// Load reads the configuration file. A missing file is not an error and
// yields pure defaults; a present but unparsable file is.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env is normal.
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Build.MaxAttempts < 1 || c.Build.MaxAttempts > MaxAttemptsCeiling {
		c.Build.MaxAttempts = DefaultMaxAttempts
	}
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath
	}
}

// FixTimeoutDuration returns the remediation command timeout.
func (b BuildConfig) FixTimeoutDuration() time.Duration {
	return parseDuration(b.FixTimeout, DefaultFixTimeout)
}

// ConfigureArgv parses the configure command override. An empty override
// returns nil, selecting the build tool's stock invocation.
func (b BuildConfig) ConfigureArgv() ([]string, error) {
	return splitCommand(b.ConfigureCommand)
}

// BuildArgv parses the build command override.
func (b BuildConfig) BuildArgv() ([]string, error) {
	return splitCommand(b.BuildCommand)
}

// DebounceDuration returns the watch settle window.
func (w WatchConfig) DebounceDuration() time.Duration {
	return parseDuration(w.Debounce, DefaultDebounce)
}

func splitCommand(command string) ([]string, error) {
	if command == "" {
		return nil, nil
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", command, err)
	}
	return argv, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
