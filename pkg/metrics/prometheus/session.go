package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/kestrel/pkg/metrics"
	"github.com/marmos91/kestrel/pkg/session"
)

func init() {
	metrics.RegisterStorageMetricsConstructor(NewStorageMetrics)
}

// storageMetrics is the Prometheus implementation of session.StorageMetrics.
type storageMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	sessions   prometheus.Gauge
}

// NewStorageMetrics creates the session storage metric set.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStorageMetrics() session.StorageMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	return &storageMetrics{
		operations: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_session_storage_operations_total",
				Help: "Session snapshot operations by type and outcome",
			},
			[]string{"operation", "outcome"}, // "save"/"load", "ok"/"error"
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kestrel_session_storage_duration_milliseconds",
				Help:    "Duration of session snapshot operations in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
			},
			[]string{"operation"},
		)),
		sessions: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kestrel_sessions_persisted",
				Help: "Number of sessions in the last persisted snapshot",
			},
		)),
	}
}

func (m *storageMetrics) ObserveSnapshot(operation string, duration time.Duration, sessions int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(float64(duration.Microseconds()) / 1000.0)
	if err == nil {
		m.sessions.Set(float64(sessions))
	}
}
