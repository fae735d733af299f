// Package http provides the inspector REST API for a running form manager.
//
// Handlers never touch the manager directly: every call is posted to the
// manager's dispatch queue and runs on the goroutine that ticks it.
//
// Endpoints:
//   - Health: / and /health
//   - State: /snapshot, /stats
//   - Groups: /groups, /groups/:name, /groups/:name/pause, /groups/:name/resume
//   - Forms: /forms, /forms/:serial, /forms/open, /forms/close, /forms/refocus
//   - Cache: /cache, /cache/capacity
//   - Assets: /assets
//   - Display logs: /logs
//   - Prometheus: /metrics
//
// Manager errors map to status codes: invalid arguments 400, unknown forms
// or groups 404, load failures 502, shutdown 503.
//
// Example Usage:
//
//	handlers := http.NewHandlers(mgr, catalog, logger)
//	http.RegisterRoutes(router, handlers, registry)
package http
