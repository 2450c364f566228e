// Package metrics collects Prometheus metrics for remote API traffic and trading activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the subset of the collector used by the transport and the session.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordRequest(method, path string, statusCode int, duration time.Duration)
	RecordTransportFailure(method, path string)
	RecordTradePlaced(side string)
	RecordReconcile(entity string, kept, added, dropped int)
}

// Collector is the Prometheus-backed Recorder
type Collector struct {
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	transportErrors *prometheus.CounterVec
	tradesPlaced    *prometheus.CounterVec
	reconciled      *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unocoin_api_requests_total",
			Help: "Remote API responses by method, path and status code",
		}, []string{"method", "path", "status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unocoin_api_request_duration_seconds",
			Help:    "Remote API round trip latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unocoin_api_transport_errors_total",
			Help: "Requests that failed before a response was received",
		}, []string{"method", "path"}),
		tradesPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unocoin_trades_placed_total",
			Help: "Trades accepted by the exchange by side",
		}, []string{"side"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unocoin_reconciled_items_total",
			Help: "Items processed by list reconciliation by entity and outcome",
		}, []string{"entity", "outcome"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.transportErrors,
		c.tradesPlaced,
		c.reconciled,
	)

	return c
}

// RecordRequest records a completed round trip
func (c *Collector) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTransportFailure records a request that never produced a response
func (c *Collector) RecordTransportFailure(method, path string) {
	c.transportErrors.WithLabelValues(method, path).Inc()
}

// RecordTradePlaced records a trade accepted by the exchange
func (c *Collector) RecordTradePlaced(side string) {
	c.tradesPlaced.WithLabelValues(side).Inc()
}

// RecordReconcile records the outcome counts of one reconciliation pass
func (c *Collector) RecordReconcile(entity string, kept, added, dropped int) {
	c.reconciled.WithLabelValues(entity, "kept").Add(float64(kept))
	c.reconciled.WithLabelValues(entity, "added").Add(float64(added))
	c.reconciled.WithLabelValues(entity, "dropped").Add(float64(dropped))
}

// Handler returns the /metrics handler for the given gatherer
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop is a Recorder that discards everything
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordTransportFailure(string, string)           {}
func (Nop) RecordTradePlaced(string)                         {}
func (Nop) RecordReconcile(string, int, int, int)            {}
