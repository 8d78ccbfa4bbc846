package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(25_000_000), cfg.Upload.MaxSize)
	assert.Equal(t, 50, cfg.Notifications.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Cache.Capacity)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: 8081
  env: production
database:
  driver: sqlite
  url: "file::memory:"
notifications:
  store: pebble
cache:
  ttl: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "pebble", cfg.Notifications.Store)
	assert.Equal(t, 10*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	// не указано в файле - остается по умолчанию
	assert.Equal(t, 100, cfg.Cache.Capacity)
}

func TestValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Notifications.Store = "s3"
	assert.Error(t, cfg.Validate())
}
