package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Server.EventCacheTTL.Duration)
	assert.Equal(t, 960.0, cfg.View.Width)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = "127.0.0.1:9000"
event_cache_ttl = "30s"
allowed_origins = ["https://example.org"]

[store]
driver = "postgres"
dsn = "postgres://localhost/relgraph?sslmode=disable"

[log]
level = "debug"
`), 0o644))

	cfg, err := load(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.EventCacheTTL.Duration)
	assert.Equal(t, []string{"https://example.org"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 600.0, cfg.View.Height)
	assert.Equal(t, 1024, cfg.Server.EventCacheSize)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\naddr = \":7000\"\n"), 0o644))

	cfg, err := load(path, env(map[string]string{
		"RELGRAPH_ADDR":            ":7100",
		"RELGRAPH_SEED":            "data/seed.json",
		"RELGRAPH_IMPORT":          "data/report.csv",
		"RELGRAPH_ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"RELGRAPH_LOG_DEVELOPMENT": "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.Server.Addr)
	assert.Equal(t, "data/seed.json", cfg.Store.Seed)
	assert.Equal(t, "data/report.csv", cfg.Store.Import)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Log.Development)
}

func TestValidateReportsAll(t *testing.T) {
	_, err := load("", env(map[string]string{
		"RELGRAPH_STORE":     "postgres",
		"RELGRAPH_LOG_LEVEL": "loud",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "store.dsn")
	assert.Contains(t, err.Error(), "log.level")
}

func TestBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o644))

	_, err := load(path, env(nil))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "warn"}.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))
}
