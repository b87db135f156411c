package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mjbridge/internal/table"
)

const summaryScenario = `
round: south
seat: 0
players:
  - direction: east
  - direction: south
hand: [1m, 2m]
script:
  - draw: 3m
`

func TestPrintSummary(t *testing.T) {
	sc, err := table.ParseScenario([]byte(summaryScenario))
	require.NoError(t, err)
	tbl, err := table.New(sc)
	require.NoError(t, err)

	var out bytes.Buffer
	printSummary(&out, tbl)
	assert.Equal(t, "Actions (0):\nOutcome: unfinished\nHand: 1m 2m\n", out.String())

	tbl.Begin()
	lock := tbl.Locker()
	lock.Lock()
	hand := tbl.Hand()
	require.NoError(t, tbl.Discard(hand[0]))
	lock.Unlock()

	out.Reset()
	printSummary(&out, tbl)
	assert.Equal(t, "Actions (1):\n   1. discard 1m\nOutcome: exhausted\nHand: 2m 3m\n", out.String())
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("MJBRIDGE_AGENT", "/from/env")
	t.Setenv("MJBRIDGE_LOG_LEVEL", "")
	t.Setenv("MJBRIDGE_METRICS_ADDR", "")

	path := filepath.Join(dir, "custom.kdl")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), path)
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, os.Unsetenv("MJBRIDGE_METRICS_ADDR"))
	envFile := filepath.Join(dir, "bridge.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MJBRIDGE_METRICS_ADDR=:9464\n"), 0644))

	out.Reset()
	rootCmd.SetArgs([]string{"config", "show", "--config", path, "--env-file", envFile})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), `path "/from/env"`)
	assert.Contains(t, out.String(), `metrics-addr ":9464"`)
	assert.Contains(t, out.String(), `log-level "info"`)
	assert.Contains(t, out.String(), "timeout 120")
}

func TestConfigShow_MissingEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	rootCmd.SetArgs([]string{"config", "show", "--env-file", filepath.Join(dir, "missing.env")})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "mjbridge v0.1.0\n", out.String())
}
