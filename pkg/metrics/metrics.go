// Package metrics holds the Prometheus collectors shared by the import,
// classification and HTTP layers.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ImportRows counts statement rows by outcome ("parsed" or "rejected").
	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_import_rows_total",
			Help: "Statement rows processed by the importer, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	// Imports counts statement uploads by detected bank format.
	Imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_imports_total",
			Help: "Statement imports, partitioned by detected format.",
		},
		[]string{"format"},
	)

	// Classifications counts classification results by source ("oracle" or
	// "default") and the reason a default was used.
	Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_classifications_total",
			Help: "Transactions classified, partitioned by result source and fallback reason.",
		},
		[]string{"source", "reason"},
	)

	// OracleLatency observes classification oracle calls.
	OracleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "budget_oracle_call_duration_seconds",
			Help:    "Classification oracle call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_http_requests_total",
			Help: "How many HTTP requests processed, partitioned by status code, method and route.",
		},
		[]string{"code", "method", "route"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "budget_http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds.",
		},
		[]string{"code", "method", "route"},
	)
)

var collectors = []prometheus.Collector{
	ImportRows,
	Imports,
	Classifications,
	OracleLatency,
	requestCount,
	requestDuration,
}

// Register registers every collector with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("could not register %v with Prometheus: %w", c, err)
		}
	}
	return nil
}

// Unregister removes every collector from reg. It reports false when any
// collector was not registered.
func Unregister(reg prometheus.Registerer) bool {
	ok := true
	for _, c := range collectors {
		if !reg.Unregister(c) {
			ok = false
		}
	}
	return ok
}

// GinMiddleware records request counts and latencies. The matched route
// template is used as the label to keep cardinality low.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		requestDuration.WithLabelValues(status, c.Request.Method, route).Observe(time.Since(start).Seconds())
		requestCount.WithLabelValues(status, c.Request.Method, route).Inc()
	}
}
