package bootstrap

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"GOOGLE_CLOUD_PROJECT", "ENABLE_PUBLISH", "PORT", "ENVIRONMENT", "TZ_DEFAULT", "PMC_WINDOW_DAYS", "REFERENCE_TABLES_PATH", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "vitalsync-project", cfg.ProjectID)
	assert.False(t, cfg.EnablePublish)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, time.UTC, cfg.DefaultLocation)
	assert.Zero(t, cfg.WindowDays)
	assert.Nil(t, cfg.ClientOptions())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "vs-prod")
	t.Setenv("ENABLE_PUBLISH", "true")
	t.Setenv("TZ_DEFAULT", "Europe/London")
	t.Setenv("PMC_WINDOW_DAYS", "180")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "vs-prod", cfg.ProjectID)
	assert.True(t, cfg.EnablePublish)
	assert.Equal(t, "Europe/London", cfg.DefaultLocation.String())
	assert.Equal(t, 180, cfg.WindowDays)
	assert.Len(t, cfg.ClientOptions(), 1)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad timezone", key: "TZ_DEFAULT", val: "Mars/Olympus"},
		{name: "bad window", key: "PMC_WINDOW_DAYS", val: "ninety"},
		{name: "negative window", key: "PMC_WINDOW_DAYS", val: "-3"},
		{name: "window too long", key: "PMC_WINDOW_DAYS", val: "36500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TZ_DEFAULT", "")
			t.Setenv("PMC_WINDOW_DAYS", "")
			t.Setenv(tt.key, tt.val)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestConfig_LoadTables(t *testing.T) {
	cfg := &Config{}
	tables, err := cfg.LoadTables()
	require.NoError(t, err)
	assert.Equal(t, "coggan-ftp-v1", tables.Version)

	cfg.ReferenceTablesPath = filepath.Join(t.TempDir(), "missing.toml")
	_, err = cfg.LoadTables()
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("version = 1\n[[population"), 0o600))
	cfg.ReferenceTablesPath = bad
	_, err = cfg.LoadTables()
	assert.Error(t, err)
}

func TestLogger_CloudLoggingKeysAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "api-analytics", slog.LevelInfo)

	logger.With("component", "pmc").Info("Computed", "user_id", "u1")
	logger.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "[pmc] Computed", entry["message"])
	assert.Equal(t, "INFO", entry["severity"])
	assert.Equal(t, "api-analytics", entry["service"])
	assert.Equal(t, "u1", entry["user_id"])
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	assert.Equal(t, slog.LevelDebug, LevelFromEnv())
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, LevelFromEnv())
}
