package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/kestrel/pkg/icons"
	"github.com/marmos91/kestrel/pkg/metrics"
)

func init() {
	metrics.RegisterIconMetricsConstructor(NewIconMetrics)
}

// iconMetrics is the Prometheus implementation of icons.Metrics.
type iconMetrics struct {
	lookups   *prometheus.CounterVec
	evictions *prometheus.CounterVec
	entries   prometheus.Gauge
	bytes     prometheus.Gauge
}

// NewIconMetrics creates the icon cache metric set.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIconMetrics() icons.Metrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	return &iconMetrics{
		lookups: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_icon_cache_lookups_total",
				Help: "Icon cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		)),
		evictions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_icon_cache_evictions_total",
				Help: "Icons dropped from the cache by reason",
			},
			[]string{"reason"}, // "capacity", "trim", "oversized"
		)),
		entries: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kestrel_icon_cache_entries",
				Help: "Number of icons held in memory",
			},
		)),
		bytes: register(reg, prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kestrel_icon_cache_bytes",
				Help: "Decoded icon bytes held in memory",
			},
		)),
	}
}

func (m *iconMetrics) RecordLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.lookups.WithLabelValues("hit").Inc()
	} else {
		m.lookups.WithLabelValues("miss").Inc()
	}
}

func (m *iconMetrics) RecordEvictions(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.evictions.WithLabelValues(reason).Add(float64(count))
}

func (m *iconMetrics) SetSize(entries int, bytes int64) {
	if m == nil {
		return
	}
	m.entries.Set(float64(entries))
	m.bytes.Set(float64(bytes))
}
