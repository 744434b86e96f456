package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, 60, cfg.Server.IdleTimeoutSec)
	assert.Equal(t, 30, cfg.Redis.CacheTTLSecs)
	assert.Equal(t, float64(10000), cfg.Risk.MaxOrderNotional)
	assert.Equal(t, float64(50000), cfg.Risk.MaxMarketExposure)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9090
  read_timeout_sec: 5
database:
  url: postgres://localhost:5432/trades
redis:
  url: redis://localhost:6379/0
  cache_ttl_sec: 120
risk:
  max_order_notional: 2500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, "postgres://localhost:5432/trades", cfg.Database.URL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 120, cfg.Redis.CacheTTLSecs)
	assert.Equal(t, float64(2500), cfg.Risk.MaxOrderNotional)

	// Keys missing from the file keep their defaults.
	assert.Equal(t, 10, cfg.Server.WriteTimeoutSec)
	assert.Equal(t, float64(50000), cfg.Risk.MaxMarketExposure)
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server: [not a map"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
