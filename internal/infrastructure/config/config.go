package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Asset sources
const (
	SourceFile = "file"
	SourceHTTP = "http"
)

// Config holds all application configuration.
type Config struct {
	Forms     FormsConfig
	Assets    AssetConfig
	Script    ScriptConfig
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// FormsConfig holds form manager configuration.
type FormsConfig struct {
	CacheCapacity int           `envconfig:"FORMSTACK_CACHE_CAPACITY" default:"16"`
	StartSerialID int64         `envconfig:"FORMSTACK_START_SERIAL_ID" default:"0"`
	Groups        string        `envconfig:"FORMSTACK_GROUPS" default:"Main:0,Popup:100"`
	Tick          time.Duration `envconfig:"FORMSTACK_TICK" default:"16ms"`
	SettingsFile  string        `envconfig:"SETTINGS_FILE"`
}

// AssetConfig selects and tunes the asset loader.
type AssetConfig struct {
	Source           string        `envconfig:"ASSET_SOURCE" default:"file"`
	Dir              string        `envconfig:"ASSET_DIR" default:"assets"`
	BaseURL          string        `envconfig:"ASSET_BASE_URL"`
	Timeout          time.Duration `envconfig:"ASSET_TIMEOUT" default:"10s"`
	Retries          int           `envconfig:"ASSET_RETRIES" default:"2"`
	RPS              float64       `envconfig:"ASSET_RPS" default:"0"`
	BreakerThreshold int           `envconfig:"ASSET_BREAKER_THRESHOLD" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"ASSET_BREAKER_COOLDOWN" default:"30s"`
}

// ScriptConfig holds form script configuration.
type ScriptConfig struct {
	Timeout          time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"100ms"`
	MaxCallStackSize int           `envconfig:"SCRIPT_MAX_CALL_STACK" default:"1024"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port             string `envconfig:"PORT" default:"8000"`
	Host             string `envconfig:"HOST" default:"0.0.0.0"`
	InspectorEnabled bool   `envconfig:"INSPECTOR_ENABLED" default:"true"`
	TracingEnabled   bool   `envconfig:"TRACING_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// GroupSpec is one entry of FORMSTACK_GROUPS
type GroupSpec struct {
	Name  string
	Depth int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Forms: FormsConfig{
			CacheCapacity: 16,
			Groups:        "Main:0,Popup:100",
			Tick:          16 * time.Millisecond,
		},
		Assets: AssetConfig{
			Source:           SourceFile,
			Dir:              "assets",
			Timeout:          10 * time.Second,
			Retries:          2,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Script: ScriptConfig{
			Timeout:          100 * time.Millisecond,
			MaxCallStackSize: 1024,
		},
		Server: ServerConfig{
			Port:             "8000",
			Host:             "0.0.0.0",
			InspectorEnabled: true,
			TracingEnabled:   true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Forms.CacheCapacity < 0 {
		errs = append(errs, fmt.Errorf("FORMSTACK_CACHE_CAPACITY must be non-negative, got %d", c.Forms.CacheCapacity))
	}
	if c.Forms.StartSerialID < 0 {
		errs = append(errs, fmt.Errorf("FORMSTACK_START_SERIAL_ID must be non-negative, got %d", c.Forms.StartSerialID))
	}
	if c.Forms.Tick <= 0 {
		errs = append(errs, fmt.Errorf("FORMSTACK_TICK must be positive, got %s", c.Forms.Tick))
	}
	if _, err := ParseGroups(c.Forms.Groups); err != nil {
		errs = append(errs, err)
	}

	switch c.Assets.Source {
	case SourceFile:
		if c.Assets.Dir == "" {
			errs = append(errs, errors.New("ASSET_DIR is required for the file source"))
		}
	case SourceHTTP:
		u, err := url.Parse(c.Assets.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("ASSET_BASE_URL must be an absolute URL, got %q", c.Assets.BaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("ASSET_SOURCE must be %q or %q, got %q", SourceFile, SourceHTTP, c.Assets.Source))
	}
	if c.Assets.Retries < 0 {
		errs = append(errs, fmt.Errorf("ASSET_RETRIES must be non-negative, got %d", c.Assets.Retries))
	}
	if c.Assets.RPS < 0 {
		errs = append(errs, fmt.Errorf("ASSET_RPS must be non-negative, got %g", c.Assets.RPS))
	}
	if c.Script.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("SCRIPT_TIMEOUT must be positive, got %s", c.Script.Timeout))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// ParseGroups parses "Name:depth,Name:depth". A missing depth is 0.
func ParseGroups(spec string) ([]GroupSpec, error) {
	var groups []GroupSpec
	seen := make(map[string]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, depthStr, hasDepth := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("FORMSTACK_GROUPS: empty group name in %q", part)
		}
		depth := 0
		if hasDepth {
			d, err := strconv.Atoi(strings.TrimSpace(depthStr))
			if err != nil {
				return nil, fmt.Errorf("FORMSTACK_GROUPS: bad depth for %q: %w", name, err)
			}
			depth = d
		}
		if seen[name] {
			return nil, fmt.Errorf("FORMSTACK_GROUPS: duplicate group %q", name)
		}
		seen[name] = true
		groups = append(groups, GroupSpec{Name: name, Depth: depth})
	}
	return groups, nil
}
