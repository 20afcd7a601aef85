package config

import (
	"os"
	"path/filepath"
	"testing"

	"multasync/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"api": {"baseUrl": "https://multas.example.gob.mx"},
		"database": {"path": "multasync.db"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://multas.example.gob.mx", cfg.API.BaseURL)
	assert.Equal(t, constants.DefaultSubmitTimeoutSec, cfg.API.SubmitTimeoutSec)
	assert.Equal(t, constants.DefaultProbeTimeoutSec, cfg.API.ProbeTimeoutSec)
	assert.Equal(t, constants.DefaultMaxPayloadKB, cfg.Database.MaxPayloadKB)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultBreakerMaxFailures, cfg.Breaker.MaxFailures)
	assert.Equal(t, "multasync", cfg.Tracing.ServiceName)
	assert.InDelta(t, 0.1, cfg.Tracing.SampleRate, 1e-9)
}

func TestLoadConfigKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"api": {"baseUrl": "https://multas.example.gob.mx", "submitTimeoutSec": 30},
		"database": {"path": "multasync.db", "maxPayloadKB": 512},
		"server": {"port": 9000}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.API.SubmitTimeoutSec)
	assert.Equal(t, 512, cfg.Database.MaxPayloadKB)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadConfigMissingAPIURL(t *testing.T) {
	path := writeConfig(t, `{"database": {"path": "multasync.db"}}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingAPIURL)
}

func TestLoadConfigMissingDBPath(t *testing.T) {
	path := writeConfig(t, `{"api": {"baseUrl": "https://multas.example.gob.mx"}}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingDBPath)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsTraversalPath(t *testing.T) {
	_, err := LoadConfig("../../etc/passwd")
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MULTAS_API_URL", "https://override.example.gob.mx")
	t.Setenv("MULTASYNC_DB_PATH", "/data/override.db")
	t.Setenv("PORT", "8282")

	path := writeConfig(t, `{
		"api": {"baseUrl": "https://multas.example.gob.mx"},
		"database": {"path": "multasync.db"},
		"server": {"port": 8181}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.gob.mx", cfg.API.BaseURL)
	assert.Equal(t, "/data/override.db", cfg.Database.Path)
	assert.Equal(t, 8282, cfg.Server.Port)
}

func TestEnvironmentOverrideSatisfiesValidation(t *testing.T) {
	t.Setenv("MULTAS_API_URL", "https://override.example.gob.mx")

	// Base URL absent from the file, supplied only via environment.
	path := writeConfig(t, `{"database": {"path": "multasync.db"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.gob.mx", cfg.API.BaseURL)
}
