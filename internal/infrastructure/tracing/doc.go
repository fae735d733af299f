/*
Package tracing provides lightweight request and asset load tracing.

# Overview

Spans are created for inspector requests and for asset loads, and reported
through the structured logger by a background collector. The trace context
travels in X-Trace-ID and X-Span-ID headers, so a remote asset origin can
correlate its logs with the load that fetched from it.

# Usage

	tracer := tracing.New("formstack", logger)
	defer tracer.Close()

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual spans
	err := tracer.Trace(ctx, "asset.load", func(ctx context.Context) error {
		return load(ctx)
	})

	// Outgoing requests
	headers := map[string]string{}
	tracing.InjectTraceContext(ctx, headers)

# Performance

Spans are buffered (1000) and logged asynchronously. A full buffer drops
spans instead of blocking the caller.
*/
package tracing
