package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
)

// GlobalConfigFile is the config file name under the user config dir.
const GlobalConfigFile = "config.kdl"

// KDLConfig represents the KDL configuration structure.
type KDLConfig struct {
	Version  string      `kdl:"version"`
	Agent    KDLAgent    `kdl:"agent"`
	Settings KDLSettings `kdl:"settings"`
}

// KDLAgent holds the agent block.
type KDLAgent struct {
	Path string `kdl:"path"`
}

// KDLSettings holds global settings from KDL.
type KDLSettings struct {
	LogLevel    string `kdl:"log-level"`
	MetricsAddr string `kdl:"metrics-addr"`
	// Timeout in seconds; negative disables it.
	Timeout int `kdl:"timeout"`
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "mjbridge", GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration, or defaults when the file
// does not exist.
func LoadGlobalConfig() (*Config, error) {
	path := GlobalConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseKDLConfig(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseKDLConfig parses KDL configuration data over the defaults.
func ParseKDLConfig(data string) (*Config, error) {
	var kdlCfg KDLConfig
	if err := kdl.Unmarshal([]byte(data), &kdlCfg); err != nil {
		return nil, err
	}

	cfg := kdlConfigToConfig(&kdlCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// kdlConfigToConfig merges set KDL values into the defaults.
func kdlConfigToConfig(kdlCfg *KDLConfig) *Config {
	cfg := DefaultConfig()

	if kdlCfg.Version != "" {
		cfg.Version = kdlCfg.Version
	}
	if kdlCfg.Agent.Path != "" {
		cfg.Agent.Path = kdlCfg.Agent.Path
	}

	if kdlCfg.Settings.LogLevel != "" {
		cfg.Settings.LogLevel = kdlCfg.Settings.LogLevel
	}
	if kdlCfg.Settings.MetricsAddr != "" {
		cfg.Settings.MetricsAddr = kdlCfg.Settings.MetricsAddr
	}
	switch {
	case kdlCfg.Settings.Timeout > 0:
		cfg.Settings.Timeout = time.Duration(kdlCfg.Settings.Timeout) * time.Second
	case kdlCfg.Settings.Timeout < 0:
		cfg.Settings.Timeout = 0
	}

	return cfg
}

// WriteDefaultConfig writes a default config file with documentation.
func WriteDefaultConfig(path string) error {
	defaultKDL := `// mjbridge configuration

version "1.0"

agent {
    // Agent executable. It runs with its own directory as working directory.
    // path "/opt/agents/tenpai/agent"
}

settings {
    // trace, debug, info, warn, error or none
    log-level "info"
    // Serve Prometheus metrics on this address during probe runs
    // metrics-addr "127.0.0.1:9464"
    // Probe timeout in seconds (-1 = no timeout)
    timeout 120
}
`
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(strings.TrimSpace(defaultKDL)+"\n"), 0644)
}

// KDL renders cfg in the config file format.
func (c *Config) KDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version %q\n\n", c.Version)
	b.WriteString("agent {\n")
	if c.Agent.Path != "" {
		fmt.Fprintf(&b, "    path %q\n", c.Agent.Path)
	}
	b.WriteString("}\n\nsettings {\n")
	fmt.Fprintf(&b, "    log-level %q\n", c.Settings.LogLevel)
	if c.Settings.MetricsAddr != "" {
		fmt.Fprintf(&b, "    metrics-addr %q\n", c.Settings.MetricsAddr)
	}
	timeout := -1
	if c.Settings.Timeout > 0 {
		timeout = int(c.Settings.Timeout / time.Second)
	}
	fmt.Fprintf(&b, "    timeout %d\n", timeout)
	b.WriteString("}\n")
	return b.String()
}
