package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Settings are the values a running host re-reads from SETTINGS_FILE
type Settings struct {
	CacheCapacity int    `mapstructure:"cache_capacity"`
	StartSerialID int64  `mapstructure:"start_serial_id"`
	LogLevel      string `mapstructure:"log_level"`
}

// Validate rejects values the manager would refuse
func (s Settings) Validate() error {
	if s.CacheCapacity < 0 {
		return fmt.Errorf("cache_capacity must be non-negative, got %d", s.CacheCapacity)
	}
	if s.StartSerialID < 0 {
		return fmt.Errorf("start_serial_id must be non-negative, got %d", s.StartSerialID)
	}
	return nil
}

// Settings returns the environment values as the settings baseline.
func (c *Config) Settings() Settings {
	return Settings{
		CacheCapacity: c.Forms.CacheCapacity,
		StartSerialID: c.Forms.StartSerialID,
		LogLevel:      c.Logging.Level,
	}
}

// SettingsWatcher reads a YAML, TOML or JSON settings file and reports
// changes to it. Keys missing from the file keep their baseline value.
type SettingsWatcher struct {
	v      *viper.Viper
	logger *zap.Logger

	mu      sync.Mutex
	current Settings
}

// NewSettingsWatcher reads path once. The format follows the extension.
func NewSettingsWatcher(path string, baseline Settings, logger *zap.Logger) (*SettingsWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	v.SetDefault("cache_capacity", baseline.CacheCapacity)
	v.SetDefault("start_serial_id", baseline.StartSerialID)
	v.SetDefault("log_level", baseline.LogLevel)
	v.SetConfigFile(path)

	w := &SettingsWatcher{v: v, logger: logger.Named("settings")}
	if _, err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Current returns the last valid settings
func (w *SettingsWatcher) Current() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Reload re-reads the file. Invalid content leaves Current untouched.
func (w *SettingsWatcher) Reload() (Settings, error) {
	if err := w.v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", w.v.ConfigFileUsed(), err)
	}

	var s Settings
	if err := w.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	w.mu.Lock()
	w.current = s
	w.mu.Unlock()
	return s, nil
}

// Watch calls onChange with the new settings after every valid edit of the
// file. onChange runs on the watcher goroutine.
func (w *SettingsWatcher) Watch(onChange func(Settings)) {
	w.v.OnConfigChange(func(e fsnotify.Event) {
		s, err := w.Reload()
		if err != nil {
			w.logger.Warn("ignoring invalid settings", zap.String("file", e.Name), zap.Error(err))
			return
		}
		w.logger.Info("settings reloaded",
			zap.String("file", e.Name),
			zap.Int("cache_capacity", s.CacheCapacity),
			zap.Int64("start_serial_id", s.StartSerialID),
			zap.String("log_level", s.LogLevel))
		onChange(s)
	})
	w.v.WatchConfig()
}
