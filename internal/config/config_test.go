package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "start", cfg.Script.Start)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  type: redis
  addr: redis.internal:6379
  ttl: 24h
script:
  path: dialog.yaml
  start: greet
  fallback: confused
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "greet", cfg.Script.Start)
	assert.Equal(t, "confused", cfg.Script.Fallback)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("{not yaml"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}
