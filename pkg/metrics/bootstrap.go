package metrics

import "time"

// BootstrapMetrics records the progress of process startup.
type BootstrapMetrics interface {
	// SetPhase marks phase as the current initializer phase.
	SetPhase(phase string)

	// ObserveStep records one wiring step. err is nil on success.
	ObserveStep(step string, duration time.Duration, err error)

	// RecordOptionalFailure counts a contained failure of an optional step.
	RecordOptionalFailure(step string)

	// RecordMemoryPressure counts a memory-pressure callback. handled is
	// false when the callback was ignored (secondary process).
	RecordMemoryPressure(level string, handled bool)

	// SetReady exports the lifecycle signal.
	SetReady(ready bool)
}

var newPrometheusBootstrapMetrics func() BootstrapMetrics

// RegisterBootstrapMetricsConstructor registers the Prometheus implementation.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterBootstrapMetricsConstructor(constructor func() BootstrapMetrics) {
	newPrometheusBootstrapMetrics = constructor
}

// NewBootstrapMetrics returns the Prometheus-backed bootstrap metrics, or
// nil if metrics are disabled or no implementation is linked in.
func NewBootstrapMetrics() BootstrapMetrics {
	if !IsEnabled() || newPrometheusBootstrapMetrics == nil {
		return nil
	}
	return newPrometheusBootstrapMetrics()
}

// SetPhase records the initializer phase if m is non-nil.
func SetPhase(m BootstrapMetrics, phase string) {
	if m != nil {
		m.SetPhase(phase)
	}
}

// ObserveStep records a wiring step if m is non-nil.
//
// Example usage:
//
//	start := time.Now()
//	err := step.run(ctx)
//	metrics.ObserveStep(m, step.name, time.Since(start), err)
func ObserveStep(m BootstrapMetrics, step string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveStep(step, duration, err)
	}
}

// RecordOptionalFailure counts a contained failure if m is non-nil.
func RecordOptionalFailure(m BootstrapMetrics, step string) {
	if m != nil {
		m.RecordOptionalFailure(step)
	}
}

// RecordMemoryPressure counts a memory-pressure callback if m is non-nil.
func RecordMemoryPressure(m BootstrapMetrics, level string, handled bool) {
	if m != nil {
		m.RecordMemoryPressure(level, handled)
	}
}

// SetReady exports readiness if m is non-nil.
func SetReady(m BootstrapMetrics, ready bool) {
	if m != nil {
		m.SetReady(ready)
	}
}
