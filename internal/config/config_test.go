package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"path": "crewsignal.db"},
		"push": {"api_base_url": "https://exp.host/--/api/v2/push"},
		"log_level": "debug"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "crewsignal.db", cfg.Database.Path)
	assert.Equal(t, "https://exp.host/--/api/v2/push", cfg.Push.APIBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Defaults applied
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Push.TimeoutSec)
	assert.Equal(t, 5, cfg.Dispatch.ExpirySweepIntervalMin)
	assert.Equal(t, 1000, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 0, cfg.Dispatch.MaxLocationAgeMinutes, "staleness cutoff defaults to disabled")
}

func TestLoadConfig_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `{"push": {"api_base_url": "https://exp.host/--/api/v2/push"}}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingDBPath)
}

func TestLoadConfig_MissingPushURL(t *testing.T) {
	path := writeConfig(t, `{"database": {"path": "crewsignal.db"}}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingPushURL)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfig_NegativeLocationAge(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"path": "crewsignal.db"},
		"push": {"api_base_url": "https://exp.host/--/api/v2/push"},
		"dispatch": {"maxLocationAgeMinutes": -5}
	}`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"path": "crewsignal.db"},
		"push": {"api_base_url": "https://exp.host/--/api/v2/push"}
	}`)

	t.Setenv("CREWSIGNAL_DB_PATH", "override.db")
	t.Setenv("CREWSIGNAL_PUSH_API_URL", "https://push.example.com")
	t.Setenv("CREWSIGNAL_PORT", "9000")
	t.Setenv("CREWSIGNAL_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "override.db", cfg.Database.Path)
	assert.Equal(t, "https://push.example.com", cfg.Push.APIBaseURL)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}
