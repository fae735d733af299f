package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so domain code never checks before recording.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Form metrics
	FormsOpen   *prometheus.GaugeVec
	Transitions *prometheus.CounterVec

	// Cache metrics
	CacheEntries   prometheus.Gauge
	CacheCapacity  prometheus.Gauge
	CacheLookups   *prometheus.CounterVec
	CacheEvictions prometheus.Counter

	// Asset load metrics
	Loads         *prometheus.CounterVec
	LoadDuration  prometheus.Histogram
	LoadsInFlight prometheus.Gauge
	BreakerState  *prometheus.GaugeVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	TotalDuration float64 `json:"total_duration_seconds"`
	Opens         int64   `json:"opens"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	LoadFailures  int64   `json:"load_failures"`
	Evictions     int64   `json:"evictions"`
	Uptime        float64 `json:"uptime_seconds"`
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstack_http_requests_total",
			Help: "Total number of inspector HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formstack_http_request_duration_seconds",
			Help:    "Inspector HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	m.FormsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "formstack_forms_open",
			Help: "Number of open forms per group",
		},
		[]string{"group"},
	)
	m.Transitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstack_form_transitions_total",
			Help: "Form lifecycle notifications by kind",
		},
		[]string{"transition"},
	)

	m.CacheEntries = factory.NewGauge(prometheus.GaugeOpts{
		Name: "formstack_cache_entries",
		Help: "Number of cached form instances",
	})
	m.CacheCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Name: "formstack_cache_capacity",
		Help: "Configured form cache capacity",
	})
	m.CacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstack_cache_lookups_total",
			Help: "Form cache lookups on open by result",
		},
		[]string{"result"},
	)
	m.CacheEvictions = factory.NewCounter(prometheus.CounterOpts{
		Name: "formstack_cache_evictions_total",
		Help: "Form instances evicted and released by the cache",
	})

	m.Loads = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstack_asset_loads_total",
			Help: "Asset loads by status",
		},
		[]string{"status"},
	)
	m.LoadDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "formstack_asset_load_duration_seconds",
		Help:    "Asset load duration in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})
	m.LoadsInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "formstack_asset_loads_in_flight",
		Help: "Asset loads currently running",
	})
	m.BreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "formstack_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	m.WSConnections = factory.NewGauge(prometheus.GaugeOpts{
		Name: "formstack_ws_connections",
		Help: "Number of active event stream connections",
	})
	m.WSMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstack_ws_messages_total",
			Help: "Total number of event stream messages",
		},
		[]string{"direction", "type"},
	)

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "formstack_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetFormsOpen sets the number of open forms in a group
func (m *Metrics) SetFormsOpen(group string, count int) {
	if m == nil {
		return
	}
	m.FormsOpen.WithLabelValues(group).Set(float64(count))
}

// DeleteGroup drops the per-group series of a removed group
func (m *Metrics) DeleteGroup(group string) {
	if m == nil {
		return
	}
	m.FormsOpen.DeleteLabelValues(group)
}

// RecordTransition counts a lifecycle notification
func (m *Metrics) RecordTransition(transition string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(transition).Inc()
	if transition == "open" {
		m.mu.Lock()
		m.snapshot.Opens++
		m.mu.Unlock()
	}
}

// RecordCacheLookup records a cache hit or miss on open
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()

	m.mu.Lock()
	if hit {
		m.snapshot.CacheHits++
	} else {
		m.snapshot.CacheMisses++
	}
	m.mu.Unlock()
}

// SetCache sets the cache gauges
func (m *Metrics) SetCache(entries, capacity int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(entries))
	m.CacheCapacity.Set(float64(capacity))
}

// IncEvictions counts one cache eviction
func (m *Metrics) IncEvictions() {
	if m == nil {
		return
	}
	m.CacheEvictions.Inc()
	m.mu.Lock()
	m.snapshot.Evictions++
	m.mu.Unlock()
}

// LoadStarted marks an asset load as running
func (m *Metrics) LoadStarted() {
	if m == nil {
		return
	}
	m.LoadsInFlight.Inc()
}

// LoadFinished records the outcome of an asset load
func (m *Metrics) LoadFinished(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LoadsInFlight.Dec()
	m.Loads.WithLabelValues(status).Inc()
	m.LoadDuration.Observe(duration.Seconds())
	if status != "success" {
		m.mu.Lock()
		m.snapshot.LoadFailures++
		m.mu.Unlock()
	}
}

// SetBreakerState records a circuit breaker state
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// GetSnapshot returns the current values for the JSON API
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()
	snap.Uptime = time.Since(m.startTime).Seconds()
	return snap
}
