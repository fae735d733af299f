// Package config provides 12-factor configuration management for formstack.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Forms: cache capacity, serial id start, groups, tick interval
//   - Assets: file catalog or HTTP origin settings
//   - Script: form script limits
//   - Server: inspector HTTP settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// The cache capacity, serial id start and log level can also be changed on a
// running host through SETTINGS_FILE, which SettingsWatcher follows.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Inspector on %s\n", cfg.Server.Address())
//
// Environment Variables:
//   - FORMSTACK_CACHE_CAPACITY, FORMSTACK_START_SERIAL_ID, FORMSTACK_GROUPS, FORMSTACK_TICK
//   - ASSET_SOURCE, ASSET_DIR, ASSET_BASE_URL, ASSET_TIMEOUT, ASSET_RETRIES, ASSET_RPS
//   - SCRIPT_TIMEOUT, PORT, HOST, INSPECTOR_ENABLED, SETTINGS_FILE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
