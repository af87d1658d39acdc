// Package metrics provides Prometheus metrics for the chat session service
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. Each instance owns
// its registry, so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration prometheus.Histogram

	CommandsTotal  *prometheus.CounterVec
	SessionsActive prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsession_completions_total",
			Help: "Completion round-trips by outcome (ok, no_answer, request_error)",
		},
		[]string{"outcome"},
	)

	m.CompletionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatsession_completion_duration_seconds",
			Help:    "Duration of completion round-trips in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	m.CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsession_commands_total",
			Help: "Session commands by name and result",
		},
		[]string{"command", "status"},
	)

	m.SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsession_sessions_active",
			Help: "Number of sessions currently open",
		},
	)

	reg.MustRegister(
		m.CompletionsTotal,
		m.CompletionDuration,
		m.CommandsTotal,
		m.SessionsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCompletion records one completion round-trip.
func (m *Metrics) ObserveCompletion(outcome string, elapsed time.Duration) {
	m.CompletionsTotal.WithLabelValues(outcome).Inc()
	m.CompletionDuration.Observe(elapsed.Seconds())
}

// RecordCommand counts a session command; status is "ok" or an error class.
func (m *Metrics) RecordCommand(command, status string) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

func (m *Metrics) SessionOpened() { m.SessionsActive.Inc() }

func (m *Metrics) SessionClosed() { m.SessionsActive.Dec() }

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
