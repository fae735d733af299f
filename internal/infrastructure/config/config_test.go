package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Forms config
	assert.Equal(t, 16, cfg.Forms.CacheCapacity)
	assert.Equal(t, int64(0), cfg.Forms.StartSerialID)
	assert.Equal(t, "Main:0,Popup:100", cfg.Forms.Groups)
	assert.Equal(t, 16*time.Millisecond, cfg.Forms.Tick)

	// Asset config
	assert.Equal(t, SourceFile, cfg.Assets.Source)
	assert.Equal(t, "assets", cfg.Assets.Dir)

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"FORMSTACK_CACHE_CAPACITY":  "4",
		"FORMSTACK_START_SERIAL_ID": "1000",
		"FORMSTACK_GROUPS":          "HUD:10",
		"FORMSTACK_TICK":            "33ms",
		"ASSET_SOURCE":              "http",
		"ASSET_BASE_URL":            "https://cdn.example.com/ui/",
		"ASSET_RETRIES":             "0",
		"ASSET_RPS":                 "2.5",
		"SCRIPT_TIMEOUT":            "250ms",
		"PORT":                      "9000",
		"HOST":                      "127.0.0.1",
		"INSPECTOR_ENABLED":         "false",
		"LOG_LEVEL":                 "debug",
		"LOG_DEV":                   "true",
		"RATE_LIMIT_ENABLED":        "false",
		"SETTINGS_FILE":             "/etc/formstack/settings.yaml",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Forms.CacheCapacity)
	assert.Equal(t, int64(1000), cfg.Forms.StartSerialID)
	assert.Equal(t, "HUD:10", cfg.Forms.Groups)
	assert.Equal(t, 33*time.Millisecond, cfg.Forms.Tick)
	assert.Equal(t, "/etc/formstack/settings.yaml", cfg.Forms.SettingsFile)

	assert.Equal(t, SourceHTTP, cfg.Assets.Source)
	assert.Equal(t, "https://cdn.example.com/ui/", cfg.Assets.BaseURL)
	assert.Equal(t, 0, cfg.Assets.Retries)
	assert.InDelta(t, 2.5, cfg.Assets.RPS, 1e-9)

	assert.Equal(t, 250*time.Millisecond, cfg.Script.Timeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address())
	assert.False(t, cfg.Server.InspectorEnabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative capacity", "FORMSTACK_CACHE_CAPACITY", "-1"},
		{"negative serial", "FORMSTACK_START_SERIAL_ID", "-5"},
		{"zero tick", "FORMSTACK_TICK", "0s"},
		{"bad groups", "FORMSTACK_GROUPS", "Main:top"},
		{"unknown source", "ASSET_SOURCE", "ftp"},
		{"http without url", "ASSET_SOURCE", "http"},
		{"not a number", "FORMSTACK_CACHE_CAPACITY", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault falls back instead of failing
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}

func TestParseGroups(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []GroupSpec
		wantErr bool
	}{
		{"default", "Main:0,Popup:100", []GroupSpec{{"Main", 0}, {"Popup", 100}}, false},
		{"spaces and missing depth", " HUD , Dialog: -5 ", []GroupSpec{{"HUD", 0}, {"Dialog", -5}}, false},
		{"empty", "", nil, false},
		{"empty name", ":3", nil, true},
		{"bad depth", "Main:x", nil, true},
		{"duplicate", "Main:0,Main:1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGroups(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeSettings(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSettingsWatcherReadsFile(t *testing.T) {
	baseline := Default().Settings()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		writeSettings(t, path, "cache_capacity: 3\nstart_serial_id: 500\n")

		w, err := NewSettingsWatcher(path, baseline, nil)
		require.NoError(t, err)
		assert.Equal(t, Settings{CacheCapacity: 3, StartSerialID: 500, LogLevel: "info"}, w.Current())
	})

	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.toml")
		writeSettings(t, path, "log_level = \"debug\"\n")

		w, err := NewSettingsWatcher(path, baseline, nil)
		require.NoError(t, err)
		assert.Equal(t, Settings{CacheCapacity: 16, StartSerialID: 0, LogLevel: "debug"}, w.Current())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewSettingsWatcher(filepath.Join(t.TempDir(), "nope.yaml"), baseline, nil)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		writeSettings(t, path, "cache_capacity: -2\n")

		_, err := NewSettingsWatcher(path, baseline, nil)
		assert.Error(t, err)
	})
}

func TestSettingsWatcherReloadKeepsLastValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeSettings(t, path, "cache_capacity: 8\n")

	w, err := NewSettingsWatcher(path, Default().Settings(), nil)
	require.NoError(t, err)

	writeSettings(t, path, "cache_capacity: 2\nstart_serial_id: 10\n")
	s, err := w.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, s.CacheCapacity)
	assert.Equal(t, int64(10), s.StartSerialID)

	writeSettings(t, path, "start_serial_id: -1\n")
	_, err = w.Reload()
	assert.Error(t, err)
	assert.Equal(t, s, w.Current())
}

func TestSettingsWatcherWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeSettings(t, path, "cache_capacity: 8\n")

	w, err := NewSettingsWatcher(path, Default().Settings(), nil)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		last Settings
	)
	w.Watch(func(s Settings) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	writeSettings(t, path, "cache_capacity: 1\nlog_level: warn\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last.CacheCapacity == 1 && last.LogLevel == "warn"
	}, 5*time.Second, 20*time.Millisecond)
}
