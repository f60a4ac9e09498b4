package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/config"
)

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.DefaultConfig().SaveTo(path))

	cfg, err := loadConfig(&options{cfgFile: path, addr: "127.0.0.1:9999", verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Daemon.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)

	cfg, err = loadConfig(&options{cfgFile: path})
	require.NoError(t, err)
	assert.Equal(t, ":8687", cfg.Daemon.Addr)
}
