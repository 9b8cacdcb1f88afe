// Package metrics exposes the panel's prometheus collectors.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-crmpanel/pkg/navigation"
)

const namespace = "crmpanel"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	validations  *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	previewLoads *prometheus.CounterVec
	rowChanges   *prometheus.CounterVec
}

// New builds a Metrics with its own registry. Process and Go runtime
// collectors are included.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
		}, []string{"route", "method"}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forms",
			Name:      "validations_total",
			Help:      "Form validations by form and outcome.",
		}, []string{"form", "result"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forms",
			Name:      "submissions_total",
			Help:      "Backend submissions by form and outcome.",
		}, []string{"form", "result"}),
		previewLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "loads_total",
			Help:      "Preview loads by navigation action and outcome.",
		}, []string{"action", "result"}),
		rowChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rows",
			Name:      "changes_total",
			Help:      "Repeatable section row additions and deletions by outcome.",
		}, []string{"form", "op", "result"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Validation records a validation outcome.
func (m *Metrics) Validation(form string, valid bool) {
	m.validations.WithLabelValues(form, outcome(valid)).Inc()
}

// Submission records a backend submission outcome.
func (m *Metrics) Submission(form string, err error) {
	m.submissions.WithLabelValues(form, errOutcome(err)).Inc()
}

// RowChange records an add or delete on a repeatable section.
func (m *Metrics) RowChange(form, op string, err error) {
	m.rowChanges.WithLabelValues(form, op, errOutcome(err)).Inc()
}

// PreviewLoad records a navigation outcome. It matches the navigation
// observer signature.
func (m *Metrics) PreviewLoad(action string, err error) {
	result := errOutcome(err)
	if errors.Is(err, navigation.ErrStale) {
		result = "stale"
	}
	m.previewLoads.WithLabelValues(action, result).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

func errOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
