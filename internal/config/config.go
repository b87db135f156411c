// Package config holds the mjbridge configuration: defaults, the KDL config
// file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvAgent       = "MJBRIDGE_AGENT"
	EnvLogLevel    = "MJBRIDGE_LOG_LEVEL"
	EnvMetricsAddr = "MJBRIDGE_METRICS_ADDR"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the complete bridge configuration.
type Config struct {
	// Version is the config file version.
	Version string `json:"version"`

	Agent    AgentConfig `json:"agent"`
	Settings Settings    `json:"settings"`
}

// AgentConfig describes the agent executable.
type AgentConfig struct {
	// Path is the agent executable. Relative paths resolve against the
	// current directory when the session starts.
	Path string `json:"path"`
}

// Settings holds global settings.
type Settings struct {
	// LogLevel is one of trace, debug, info, warn, error, none.
	LogLevel string `json:"log_level"`
	// MetricsAddr is the listen address for the metrics endpoint; empty disables it.
	MetricsAddr string `json:"metrics_addr,omitempty"`
	// Timeout bounds a probe run. Zero means no timeout.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Settings: Settings{
			LogLevel: "info",
			Timeout:  2 * time.Minute,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from files into the process environment.
// Variables already set are left alone. With no files it loads ".env" when
// present; files named explicitly must exist.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with MJBRIDGE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAgent); v != "" {
		c.Agent.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Settings.LogLevel = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.Settings.MetricsAddr = v
	}
}

// Validate checks the configuration for errors and fills unset defaults.
func (c *Config) Validate() error {
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = "info"
	}
	if c.Settings.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidConfig, c.Settings.Timeout)
	}
	return nil
}

// RequireAgent reports an error when no agent executable is configured.
func (c *Config) RequireAgent() error {
	if c.Agent.Path == "" {
		return fmt.Errorf("%w: no agent path (set agent.path, --agent or %s)", ErrInvalidConfig, EnvAgent)
	}
	return nil
}
