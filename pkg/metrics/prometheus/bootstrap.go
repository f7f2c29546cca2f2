package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/kestrel/pkg/metrics"
)

func init() {
	metrics.RegisterBootstrapMetricsConstructor(NewBootstrapMetrics)
}

// Phases exported by the phase gauge.
var phases = []string{"not_started", "scheduled", "wired", "aborted"}

// bootstrapMetrics is the Prometheus implementation of metrics.BootstrapMetrics.
type bootstrapMetrics struct {
	phase            *prometheus.GaugeVec
	stepDuration     *prometheus.HistogramVec
	stepTotal        *prometheus.CounterVec
	optionalFailures *prometheus.CounterVec
	memoryPressure   *prometheus.CounterVec
	ready            prometheus.Gauge
}

// NewBootstrapMetrics creates the bootstrap metric set.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBootstrapMetrics() metrics.BootstrapMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	return &bootstrapMetrics{
		phase: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kestrel_bootstrap_phase",
				Help: "Current deferred initializer phase (1 for the active phase, 0 otherwise)",
			},
			[]string{"phase"},
		)),
		stepDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "kestrel_bootstrap_step_duration_milliseconds",
				Help: "Duration of subsystem wiring steps in milliseconds",
				Buckets: []float64{
					0.1,  // in-process stubs
					1,    // 1ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					500,  // 500ms - engine launch
					1000, // 1s
					5000, // 5s - cold browser download
				},
			},
			[]string{"step"},
		)),
		stepTotal: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_bootstrap_steps_total",
				Help: "Total number of wiring steps by outcome",
			},
			[]string{"step", "outcome"}, // "ok", "error"
		)),
		optionalFailures: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_bootstrap_optional_failures_total",
				Help: "Contained failures of optional subsystems",
			},
			[]string{"step"},
		)),
		memoryPressure: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_memory_pressure_events_total",
				Help: "Memory-pressure callbacks by level and whether they were relayed",
			},
			[]string{"level", "handled"},
		)),
		ready: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kestrel_lifecycle_ready",
				Help: "1 once subsystem wiring has completed",
			},
		)),
	}
}

func (m *bootstrapMetrics) SetPhase(phase string) {
	if m == nil {
		return
	}
	for _, p := range phases {
		v := 0.0
		if p == phase {
			v = 1
		}
		m.phase.WithLabelValues(p).Set(v)
	}
}

func (m *bootstrapMetrics) ObserveStep(step string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.stepDuration.WithLabelValues(step).Observe(float64(duration.Microseconds()) / 1000.0)
	m.stepTotal.WithLabelValues(step, outcome).Inc()
}

func (m *bootstrapMetrics) RecordOptionalFailure(step string) {
	if m == nil {
		return
	}
	m.optionalFailures.WithLabelValues(step).Inc()
}

func (m *bootstrapMetrics) RecordMemoryPressure(level string, handled bool) {
	if m == nil {
		return
	}
	h := "false"
	if handled {
		h = "true"
	}
	m.memoryPressure.WithLabelValues(level, h).Inc()
}

func (m *bootstrapMetrics) SetReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ready.Set(1)
	} else {
		m.ready.Set(0)
	}
}
