// Package metrics defines the Prometheus collectors exported by recordstore.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors, registered on their own registry so that
// several servers can coexist in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestsTotal counts requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration measures handler latency.
	HTTPRequestDuration *prometheus.HistogramVec

	// StoreOperations counts store calls by operation and failure kind.
	StoreOperations *prometheus.CounterVec

	// RecordsMerged counts records rewritten by updates.
	RecordsMerged prometheus.Counter

	// Records is the record count last observed in the document.
	Records prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordstore_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recordstore_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path"},
		),
		StoreOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordstore_store_operations_total",
				Help: "Store operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		RecordsMerged: f.NewCounter(prometheus.CounterOpts{
			Name: "recordstore_records_merged_total",
			Help: "Records matched by update batches",
		}),
		Records: f.NewGauge(prometheus.GaugeOpts{
			Name: "recordstore_records",
			Help: "Number of records in the document at the last operation",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
