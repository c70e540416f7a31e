// Package metrics exposes Prometheus metrics for the console.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
)

// Metrics holds the console collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	polls           *prometheus.CounterVec
	sessionChanges  *prometheus.CounterVec
	liveViews       *prometheus.GaugeVec
}

// New creates and registers the console collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cimex_console",
			Name:      "backend_requests_total",
			Help:      "Requests sent to the panel backend, by outcome.",
		}, []string{"method", "route", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cimex_console",
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of panel backend requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cimex_console",
			Name:      "view_fetches_total",
			Help:      "View fetches, by view and result.",
		}, []string{"view", "result"}),
		sessionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cimex_console",
			Name:      "session_changes_total",
			Help:      "Session state changes, by resulting state.",
		}, []string{"state"}),
		liveViews: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cimex_console",
			Name:      "live_views",
			Help:      "Views currently mounted by live connections.",
		}, []string{"view"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.backendRequests,
		m.backendLatency,
		m.polls,
		m.sessionChanges,
		m.liveViews,
	)
	return m
}

// ObserveRequest records one backend request. It matches apiclient.Observer.
func (m *Metrics) ObserveRequest(method, route string, outcome apiclient.Outcome, elapsed time.Duration) {
	m.backendRequests.WithLabelValues(method, route, outcome.String()).Inc()
	m.backendLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveFetch records one view fetch. It matches poller.Observer.
func (m *Metrics) ObserveFetch(view, result string) {
	m.polls.WithLabelValues(view, result).Inc()
}

// ObserveSession records a session change. It matches session.Listener.
func (m *Metrics) ObserveSession(s domain.Session) {
	m.sessionChanges.WithLabelValues(s.State.String()).Inc()
}

// ViewMounted adjusts the live view gauge.
func (m *Metrics) ViewMounted(view string, mounted bool) {
	if mounted {
		m.liveViews.WithLabelValues(view).Inc()
		return
	}
	m.liveViews.WithLabelValues(view).Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
