// Package admin exposes a read-only HTTP introspection surface over a
// running Scheduler: a JSON listing of its ScriptInstances and a Prometheus
// /metrics endpoint. Neither the teacher nor any other pack repo runs an
// HTTP admin surface, so this is built from the
// other_examples/manifests/Generativebots-ocx-backend-go-svc dependency
// lead (gorilla/mux + prometheus/client_golang wired side by side in a Go
// service's go.mod) rather than adapted from any one file.
package admin

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the three counters/gauges SPEC_FULL.md's domain-stack table
// names: scheduler ticks, currently-suspended scripts, and validator
// rejections.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal         prometheus.Counter
	suspendedScripts   prometheus.Gauge
	validatorRejections prometheus.Counter
}

// NewMetrics registers the collectors against a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "continuum_scheduler_ticks_total",
			Help: "Total number of Scheduler.Tick invocations that found work.",
		}),
		suspendedScripts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "continuum_scheduler_suspended_scripts",
			Help: "Number of ScriptInstances currently in the Suspended state.",
		}),
		validatorRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "continuum_validator_rejections_total",
			Help: "Total number of ContinuationStates rejected by Validator.TryValidate.",
		}),
	}
	m.registry.MustRegister(m.ticksTotal, m.suspendedScripts, m.validatorRejections)
	return m
}

// RecordTick increments the tick counter. Call once per Scheduler.Tick that
// returned true.
func (m *Metrics) RecordTick() {
	m.ticksTotal.Inc()
}

// SetSuspendedCount sets the suspended-scripts gauge to n.
func (m *Metrics) SetSuspendedCount(n int) {
	m.suspendedScripts.Set(float64(n))
}

// RecordValidatorRejection increments the validator-rejection counter.
func (m *Metrics) RecordValidatorRejection() {
	m.validatorRejections.Inc()
}
