// Package metrics holds the prometheus collectors shared by the services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	completions       *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	submitsRejected   *prometheus.CounterVec
	persistenceWrites *prometheus.CounterVec
	transcriptions    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	rateLimited       prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgex",
			Name:      "completion_requests_total",
			Help:      "Completion API calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edgex",
			Name:      "completion_duration_seconds",
			Help:      "Completion API latency by tool.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"tool"}),
		submitsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgex",
			Name:      "chat_submits_rejected_total",
			Help:      "Chat submissions ignored by reason.",
		}, []string{"reason"}),
		persistenceWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgex",
			Name:      "session_writes_total",
			Help:      "Chat session writes by kind and outcome.",
		}, []string{"kind", "outcome"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgex",
			Name:      "transcriptions_total",
			Help:      "Audio transcriptions by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgex",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edgex",
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
	}
	m.registry.MustRegister(
		m.completions,
		m.completionLatency,
		m.submitsRejected,
		m.persistenceWrites,
		m.transcriptions,
		m.httpRequests,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveCompletion(tool string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(tool, outcome(err)).Inc()
	m.completionLatency.WithLabelValues(tool).Observe(took.Seconds())
}

func (m *Metrics) SubmitRejected(reason string) {
	if m == nil {
		return
	}
	m.submitsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) SessionWrite(kind string, err error) {
	if m == nil {
		return
	}
	m.persistenceWrites.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) Transcription(err error) {
	if m == nil {
		return
	}
	m.transcriptions.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, statusClass(status)).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
