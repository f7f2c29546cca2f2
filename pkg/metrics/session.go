package metrics

import "github.com/marmos91/kestrel/pkg/session"

var newPrometheusStorageMetrics func() session.StorageMetrics

// RegisterStorageMetricsConstructor registers the Prometheus implementation.
func RegisterStorageMetricsConstructor(constructor func() session.StorageMetrics) {
	newPrometheusStorageMetrics = constructor
}

// NewStorageMetrics returns session storage metrics, or nil when disabled.
func NewStorageMetrics() session.StorageMetrics {
	if !IsEnabled() || newPrometheusStorageMetrics == nil {
		return nil
	}
	return newPrometheusStorageMetrics()
}
