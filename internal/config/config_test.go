package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "PREDICTOR_BASE_URL", "PREDICTOR_TIMEOUT", "DEFAULT_COUNTRY",
	"STABILITY_DB_PATH", "DISABLE_HISTORY", "ALLOWED_ORIGINS", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "in", cfg.DefaultCountry)
	assert.Zero(t, cfg.PredictorTimeout)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9000"
predictor_base_url: http://predictor:5000
predictor_timeout: 15s
default_country: us
allowed_origins:
  - http://localhost:3000
`)
	t.Setenv("DEFAULT_COUNTRY", "gb")
	t.Setenv("ALLOWED_ORIGINS", "http://a, http://b ,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://predictor:5000", cfg.PredictorBaseURL)
	assert.Equal(t, 15*time.Second, cfg.PredictorTimeout)
	assert.Equal(t, "gb", cfg.DefaultCountry)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowedOrigins)
	assert.Equal(t, "data/stability.db", cfg.DBPath)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad timeout env", env: map[string]string{"PREDICTOR_TIMEOUT": "soon"}},
		{name: "negative timeout", env: map[string]string{"PREDICTOR_TIMEOUT": "-1s"}},
		{name: "bad yaml", file: "port: [unterminated"},
		{name: "missing db path", file: "db_path: \"\"\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDisableHistoryAllowsEmptyDBPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISABLE_HISTORY", "TRUE")
	path := writeConfig(t, "db_path: \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.DisableHistory)
}
