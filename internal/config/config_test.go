package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "callreport.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8, cfg.Import.Workers)
	assert.Equal(t, "windows-1252", cfg.Import.Encoding)
	assert.False(t, cfg.Import.Strict)
	assert.Equal(t, "https://cdr.ffiec.gov/CDR/Public/PWS", cfg.Fetch.BaseURL)
	assert.Equal(t, 3, cfg.Fetch.Retries)
	assert.Equal(t, 10, cfg.Peer.Count)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CALLREPORT_STORE_DRIVER", "postgres")
	t.Setenv("CALLREPORT_STORE_DATABASE_URL", "postgres://localhost/callreport")
	t.Setenv("CALLREPORT_IMPORT_WORKERS", "16")
	t.Setenv("CALLREPORT_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/callreport", cfg.Store.DatabaseURL)
	assert.Equal(t, 16, cfg.Import.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
