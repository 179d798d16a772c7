package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":9000\"\ndatabase:\n  path: file.db\n"), 0o600))

	cfg, err := loadConfig([]string{"--config", path, "--db", ":memory:", "--booking-timeout", "2s"})

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 2*time.Second, cfg.Booking.Timeout)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("POOL_ENGINE_CONFIG", "")

	_, err := loadConfig([]string{"--log-level", "loud", "--booking-url", ""})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "booking.url")
}

func TestLoadConfig_DotenvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("POOL_ENGINE_HTTP_ADDR=:7070\n"), 0o600))
	t.Setenv("POOL_ENGINE_CONFIG", "")
	t.Setenv("POOL_ENGINE_HTTP_ADDR", "")
	os.Unsetenv("POOL_ENGINE_HTTP_ADDR")

	cfg, err := loadConfig([]string{"--env-file", envFile})

	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestLoadConfig_MissingDotenvIsIgnored(t *testing.T) {
	t.Setenv("POOL_ENGINE_CONFIG", "")

	_, err := loadConfig([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")})

	assert.NoError(t, err)
}
