package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://www.screener.in", cfg.Fundamentals.BaseURL)
	assert.Equal(t, 1, cfg.Fundamentals.MaxAttempts)
	assert.Equal(t, "memory", cfg.Sessions.Backend)
	assert.Equal(t, "Research_Analyst_Report.xlsx", cfg.Export.FileName)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("ANALYST_SESSIONS_BACKEND", "redis")
	t.Setenv("ANALYST_FUNDAMENTALS_MAXATTEMPTS", "3")

	cfg, err := LoadFile(writeConfig(t, "sessions:\n  backend: memory\n"))
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Sessions.Backend)
	assert.Equal(t, 3, cfg.Fundamentals.MaxAttempts)
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad backend", "sessions:\n  backend: etcd\n", "sessions.backend"},
		{"bad limiter backend", "ratelimit:\n  backend: etcd\n", "ratelimit.backend"},
		{"zero attempts", "fundamentals:\n  maxAttempts: 0\n", "fundamentals.maxAttempts"},
		{"bad export name", "export:\n  fileName: report.csv\n", "export.fileName"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"zero query length", "server:\n  maxQueryLength: 0\n", "server.maxQueryLength"},
		{"zero rate limit", "ratelimit:\n  maxRequestsPerMinute: 0\n", "ratelimit.maxRequestsPerMinute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
