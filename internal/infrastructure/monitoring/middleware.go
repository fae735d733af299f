package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route templates keep label cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures an asset load
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewLoadTimer marks a load as started and returns its timer
func NewLoadTimer(metrics *Metrics) *Timer {
	metrics.LoadStarted()
	return &Timer{start: time.Now(), metrics: metrics}
}

// Stop records the load outcome and duration
func (t *Timer) Stop(status string) time.Duration {
	d := time.Since(t.start)
	t.metrics.LoadFinished(status, d)
	return d
}
