package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultGoals, cfg.Goals)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
	assert.True(t, cfg.Watch.Notify)
	assert.Equal(t, "127.0.0.1:8484", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Output.Color)
	assert.Equal(t, DBPath(), cfg.DBPath)
	assert.True(t, strings.HasSuffix(cfg.InboxDir, filepath.Join("basalcoach", "inbox")))
	assert.NotContains(t, cfg.InboxDir, "~")
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
goals:
  target_tir: 75
  target_range_high: 170
history_limit: 5
watch:
  interval: 2m
  notify: false
server:
  addr: ":9000"
log:
  level: debug
  format: json
db_path: /tmp/bc/test.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 75.0, cfg.Goals.TargetTIR)
	assert.Equal(t, 170.0, cfg.Goals.TargetRangeHigh)
	assert.Equal(t, 70.0, cfg.Goals.TargetRangeLow, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.Equal(t, 2*time.Minute, cfg.Watch.Interval)
	assert.False(t, cfg.Watch.Notify)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/bc/test.db", cfg.DBPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BASALCOACH_SERVER_ADDR", "0.0.0.0:1234")
	t.Setenv("BASALCOACH_HISTORY_LIMIT", "7")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:1234", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.HistoryLimit)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"history limit", "history_limit: 0\n"},
		{"goals", "goals:\n  target_range_high: 50\n"},
		{"log format", "log:\n  format: xml\n"},
		{"interval", "watch:\n  interval: 0s\n"},
		{"malformed yaml", "goals: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y"), expandPath("~/x/y"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "rel", expandPath("rel"))
}
