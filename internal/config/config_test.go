package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDLConfig(t *testing.T) {
	input := `
version "1.1"

agent {
    path "/opt/agents/bot"
}

settings {
    log-level "debug"
    metrics-addr "127.0.0.1:9464"
    timeout 30
}
`
	cfg, err := ParseKDLConfig(input)
	require.NoError(t, err)

	assert.Equal(t, "1.1", cfg.Version)
	assert.Equal(t, "/opt/agents/bot", cfg.Agent.Path)
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	assert.Equal(t, "127.0.0.1:9464", cfg.Settings.MetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.Settings.Timeout)
}

func TestParseKDLConfig_KeepsDefaults(t *testing.T) {
	cfg, err := ParseKDLConfig(`settings { log-level "warn"; }`)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, "warn", cfg.Settings.LogLevel)
	assert.Equal(t, def.Settings.Timeout, cfg.Settings.Timeout)
	assert.Equal(t, def.Version, cfg.Version)
	assert.Empty(t, cfg.Agent.Path)
}

func TestParseKDLConfig_NegativeTimeoutDisables(t *testing.T) {
	cfg, err := ParseKDLConfig(`settings { timeout -1; }`)
	require.NoError(t, err)
	assert.Zero(t, cfg.Settings.Timeout)
}

func TestParseKDLConfig_Invalid(t *testing.T) {
	_, err := ParseKDLConfig(`settings {`)
	assert.Error(t, err)
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", GlobalConfigFile)
	require.NoError(t, WriteDefaultConfig(path))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigKDL_RoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.Agent.Path = "/usr/local/bin/agent"
	want.Settings.MetricsAddr = ":9464"
	want.Settings.Timeout = 45 * time.Second

	got, err := ParseKDLConfig(want.KDL())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadGlobalConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "mjbridge", GlobalConfigFile), GlobalConfigPath())

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg, "missing file yields defaults")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mjbridge"), 0755))
	require.NoError(t, os.WriteFile(GlobalConfigPath(), []byte(`agent { path "bot"; }`), 0644))

	cfg, err = LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "bot", cfg.Agent.Path)
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.kdl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAgent, "/env/agent")
	t.Setenv(EnvLogLevel, "trace")
	t.Setenv(EnvMetricsAddr, "")

	cfg := DefaultConfig()
	cfg.Settings.MetricsAddr = ":1234"
	cfg.ApplyEnv()

	assert.Equal(t, "/env/agent", cfg.Agent.Path)
	assert.Equal(t, "trace", cfg.Settings.LogLevel)
	assert.Equal(t, ":1234", cfg.Settings.MetricsAddr, "empty variables do not override")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MJBRIDGE_AGENT=/dotenv/agent\nMJBRIDGE_LOG_LEVEL=error\n"), 0644))

	t.Setenv(EnvAgent, "")
	t.Setenv(EnvLogLevel, "warn")
	require.NoError(t, os.Unsetenv(EnvAgent))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "/dotenv/agent", os.Getenv(EnvAgent))
	assert.Equal(t, "warn", os.Getenv(EnvLogLevel), "existing variables win")
}

func TestLoadDotEnv_NamedFileMustExist(t *testing.T) {
	err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDotEnv_DefaultFileOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, LoadDotEnv())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.LogLevel = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Settings.LogLevel)

	cfg.Settings.Timeout = -time.Second
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	assert.ErrorIs(t, DefaultConfig().RequireAgent(), ErrInvalidConfig)
}
