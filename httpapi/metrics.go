package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-intake/flow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts committed transitions and backend effects. It is both a
// flow.TransitionHook and a session.EffectObserver.
type Metrics struct {
	registry       *prometheus.Registry
	transitions    *prometheus.CounterVec
	pruned         *prometheus.CounterVec
	effects        *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_transitions_total",
				Help: "Committed wizard transitions by action and resulting step.",
			},
			[]string{"action", "step"},
		),
		pruned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_pruned_fields_total",
				Help: "Collected fields discarded as stale.",
			},
			[]string{"field"},
		),
		effects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_side_effects_total",
				Help: "Side effects emitted by the wizard.",
			},
			[]string{"effect"},
		),
		effectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intake_effect_duration_seconds",
				Help:    "Time spent resolving backend side effects.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"effect", "outcome"},
		),
	}
	m.registry.MustRegister(m.transitions, m.pruned, m.effects, m.effectDuration)
	return m
}

// Notify records committed transitions. Other phases are ignored.
func (m *Metrics) Notify(_ context.Context, evt flow.TransitionEvent) error {
	if evt.Phase != flow.TransitionPhaseCommitted {
		return nil
	}
	m.transitions.WithLabelValues(evt.Action, evt.CurrentStep.String()).Inc()
	for _, f := range evt.Pruned.Fields() {
		m.pruned.WithLabelValues(f.String()).Inc()
	}
	if evt.NewEffect {
		m.effects.WithLabelValues(string(evt.SideEffect)).Inc()
	}
	return nil
}

func (m *Metrics) ObserveEffect(effect flow.SideEffect, outcome string, elapsed time.Duration) {
	m.effectDuration.WithLabelValues(string(effect), outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
