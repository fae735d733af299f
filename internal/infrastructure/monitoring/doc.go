/*
Package monitoring provides Prometheus metrics for the form stack.

# Overview

Metrics cover open forms per group, lifecycle notifications, the reuse cache
(entries, capacity, hit/miss, evictions), asset loads (status, duration,
in-flight, origin breaker state), the inspector HTTP API and the event stream.

All recording methods accept a nil *Metrics, so tests and embedders that do
not care about metrics pass nil.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	timer := monitoring.NewLoadTimer(metrics)
	// ... load the asset ...
	timer.Stop("success")
*/
package monitoring
