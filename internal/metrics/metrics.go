// Package metrics exposes Prometheus instrumentation for sketch sessions.
//
// All methods are safe on a nil *Metrics, so callers never need to check
// whether instrumentation was configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sketchbook"

// Metrics holds the collectors updated by a session controller.
type Metrics struct {
	// EventsApplied counts interpreted events.
	// Labels: component (model, observations, properties), outcome (Consumed kind)
	EventsApplied *prometheus.CounterVec

	// EventErrors counts rejected events by error code.
	EventErrors *prometheus.CounterVec

	// CascadeEvents observes how many events a Restart expanded into.
	CascadeEvents prometheus.Histogram

	// HistoryDepth tracks the number of undoable steps.
	HistoryDepth prometheus.Gauge
}

// New creates the collectors and registers them with reg. Pass
// prometheus.NewRegistry() in tests to avoid the global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_applied_total",
				Help:      "Events interpreted by the sketch, by component and outcome",
			},
			[]string{"component", "outcome"},
		),
		EventErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_errors_total",
				Help:      "Events rejected by the sketch, by error code",
			},
			[]string{"code"},
		),
		CascadeEvents: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cascade_events",
				Help:      "Number of events a cascading removal expanded into",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
			},
		),
		HistoryDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "history_depth",
				Help:      "Number of steps that can currently be undone",
			},
		),
	}
}

// ObserveOutcome records one interpreted event.
func (m *Metrics) ObserveOutcome(component, outcome string) {
	if m == nil {
		return
	}
	m.EventsApplied.WithLabelValues(component, outcome).Inc()
}

// ObserveError records one rejected event.
func (m *Metrics) ObserveError(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "internal"
	}
	m.EventErrors.WithLabelValues(code).Inc()
}

// ObserveCascade records the size of an expanded Restart.
func (m *Metrics) ObserveCascade(events int) {
	if m == nil {
		return
	}
	m.CascadeEvents.Observe(float64(events))
}

// SetHistoryDepth reports the current undo depth.
func (m *Metrics) SetHistoryDepth(depth int) {
	if m == nil {
		return
	}
	m.HistoryDepth.Set(float64(depth))
}
