package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of the backend and the console.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	saves       *prometheus.CounterVec
	bufferEdits *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procmeta_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "procmeta_http_request_duration_seconds",
				Help: "Duration of HTTP requests by route",
			},
			[]string{"route", "method"},
		),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procmeta_saves_total",
				Help: "Save batches by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		bufferEdits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procmeta_buffer_edits_total",
				Help: "Pending-changes edits by entity kind and operation",
			},
			[]string{"kind", "op"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.saves, m.bufferEdits)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, http.StatusText(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveSave records one save batch. mode is "sequential", "batch" or "save-all".
func (m *Metrics) ObserveSave(mode string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.saves.WithLabelValues(mode, outcome).Inc()
}

// ObserveEdit records one buffered edit.
func (m *Metrics) ObserveEdit(kind, op string) {
	if m == nil {
		return
	}
	m.bufferEdits.WithLabelValues(kind, op).Inc()
}

// Registry exposes the registry for custom collectors and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
