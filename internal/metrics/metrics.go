package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes the HTTP observability primitives for tripbook.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	tripsClosed  *prometheus.CounterVec
	ledgerWrites *prometheus.CounterVec
}

// NewMetrics registers and returns the Prometheus collectors.
func NewMetrics() *Metrics {
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_http_requests_total",
		Help: "Counts HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripbook_http_request_duration_seconds",
		Help:    "HTTP request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	tripsClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_trips_closed_total",
		Help: "Counts trip closures by outcome.",
	}, []string{"outcome"})

	ledgerWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripbook_ledger_writes_total",
		Help: "Counts ledger entry writes by entry type.",
	}, []string{"type"})

	prometheus.MustRegister(httpRequests, httpDuration, tripsClosed, ledgerWrites)

	return &Metrics{
		httpRequests: httpRequests,
		httpDuration: httpDuration,
		tripsClosed:  tripsClosed,
		ledgerWrites: ledgerWrites,
	}
}

// ObserveTripClosed increments the closure counter for an outcome label.
func (m *Metrics) ObserveTripClosed(outcome string) {
	m.tripsClosed.WithLabelValues(outcome).Inc()
}

// ObserveLedgerWrite increments the ledger write counter for an entry type.
func (m *Metrics) ObserveLedgerWrite(entryType string) {
	m.ledgerWrites.WithLabelValues(entryType).Inc()
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

var Module = fx.Module("metrics",
	fx.Provide(NewMetrics),
)
