// Package server is the composition root of formstack.
//
// NewServer builds the logger-backed components from configuration: the
// prometheus registry and metrics, the asset loader (file catalog or HTTP
// origin behind a circuit breaker), the script logic factory, the form
// manager with its groups, the WebSocket event hub, the tracer and the
// inspector router.
//
// Run owns the UI goroutine. It ticks the manager at the configured interval,
// drains queued continuations as soon as they are posted, and on shutdown
// stops the inspector before tearing the manager down.
package server
