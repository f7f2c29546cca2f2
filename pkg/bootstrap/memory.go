package bootstrap

import (
	"context"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/metrics"
	"github.com/marmos91/kestrel/pkg/process"
	"github.com/marmos91/kestrel/pkg/registry"
)

// MemoryRelay forwards memory-pressure callbacks to the store and the icon
// cache. It is safe to call from any goroutine, before or during wiring.
type MemoryRelay struct {
	gate    *process.Gate
	reg     *registry.Registry
	metrics metrics.BootstrapMetrics
}

func NewMemoryRelay(gate *process.Gate, reg *registry.Registry, m metrics.BootstrapMetrics) *MemoryRelay {
	return &MemoryRelay{gate: gate, reg: reg, metrics: m}
}

// OnMemoryPressure relays level in the primary process and does nothing
// in secondary ones. Handle construction errors are logged.
func (r *MemoryRelay) OnMemoryPressure(level browser.MemoryLevel) {
	ctx, span := telemetry.StartSpan(context.Background(), telemetry.SpanTrimMemory)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.MemoryLevel(level.String()))

	if !r.gate.IsPrimary() {
		metrics.RecordMemoryPressure(r.metrics, level.String(), false)
		return
	}
	metrics.RecordMemoryPressure(r.metrics, level.String(), true)

	logger.Debug("Memory pressure", logger.KeyLevelID, level.String(), logger.MemoryLevel(int(level)))

	if store, err := r.reg.Store(); err != nil {
		logger.Warn("Cannot relay memory pressure to store", logger.Err(err))
	} else {
		store.Dispatch(browser.LowMemoryAction{Level: level})
	}

	if icons, err := r.reg.Icons(); err != nil {
		logger.Warn("Cannot relay memory pressure to icon cache", logger.Err(err))
	} else {
		icons.OnTrimMemory(level)
	}
}
