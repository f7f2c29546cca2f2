package metrics

import "github.com/marmos91/kestrel/pkg/icons"

var newPrometheusIconMetrics func() icons.Metrics

// RegisterIconMetricsConstructor registers the Prometheus implementation.
func RegisterIconMetricsConstructor(constructor func() icons.Metrics) {
	newPrometheusIconMetrics = constructor
}

// NewIconMetrics returns icon cache metrics, or nil when disabled. A nil
// value can be passed straight to icons.New.
func NewIconMetrics() icons.Metrics {
	if !IsEnabled() || newPrometheusIconMetrics == nil {
		return nil
	}
	return newPrometheusIconMetrics()
}
