package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "blpkit.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.Analysis.Timeout)
	assert.True(t, cfg.Analysis.Eager)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	p := writeFile(t, `
log:
  level: debug
analysis:
  timeout: 3s
  eager: false
cache:
  dir: /tmp/blpkit-cache
workers: 4
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3*time.Second, cfg.Analysis.Timeout)
	assert.False(t, cfg.Analysis.Eager)
	assert.Equal(t, "/tmp/blpkit-cache", cfg.Cache.Dir)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, "analysis:\n  timeout: 3s\n")
	t.Setenv("BLPKIT_ANALYSIS_TIMEOUT", "750ms")
	t.Setenv("BLPKIT_OUTPUT_DIR", "out")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Analysis.Timeout)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	p := writeFile(t, "log:\n  level: loud\nanalysis:\n  timeout: 0s\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Level")
	assert.Contains(t, err.Error(), "Timeout")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "cache.ttl", envKey("BLPKIT_CACHE_TTL"))
	assert.Equal(t, "workers", envKey("BLPKIT_WORKERS"))
}
