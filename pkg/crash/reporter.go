// Package crash records panics and fatal startup failures. Reporting is
// switched on or off once per process from a single flag; when it is off,
// every recording call is a no-op.
package crash

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/kestrel/internal/logger"
)

// Reporter writes crash reports to a Store.
type Reporter struct {
	store   Store
	process string
	version string

	installOnce sync.Once
	enabled     atomic.Bool
	installed   atomic.Bool
	recorded    atomic.Int64
}

// NewReporter returns a reporter. store may be nil, in which case reports
// are only logged.
func NewReporter(store Store, process, version string) *Reporter {
	return &Reporter{store: store, process: process, version: version}
}

// Install enables or disables reporting. Only the first call has effect.
func (r *Reporter) Install(enabled bool) {
	r.installOnce.Do(func() {
		r.enabled.Store(enabled)
		r.installed.Store(true)
		if enabled {
			logger.Info("Crash reporting enabled", "process", r.process)
		} else {
			logger.Debug("Crash reporting disabled", "process", r.process)
		}
	})
}

// Enabled reports whether crash reporting is active.
func (r *Reporter) Enabled() bool {
	return r.enabled.Load()
}

// Installed reports whether Install has been called.
func (r *Reporter) Installed() bool {
	return r.installed.Load()
}

// Recorded returns the number of reports written by this reporter.
func (r *Reporter) Recorded() int64 {
	return r.recorded.Load()
}

// Record stores a report for err and returns its crash ID. It returns an
// empty ID when reporting is disabled.
func (r *Reporter) Record(ctx context.Context, kind string, err error, stack []byte, fatal bool) (string, error) {
	if !r.Enabled() || err == nil {
		return "", nil
	}

	report := &Report{
		CrashID:   uuid.NewString(),
		Kind:      kind,
		Message:   err.Error(),
		Stack:     string(stack),
		Process:   r.process,
		Version:   r.version,
		Fatal:     fatal,
		CreatedAt: time.Now().UTC(),
	}

	logger.ErrorCtx(ctx, "Crash recorded",
		logger.KeyCrashID, report.CrashID, "kind", kind, "fatal", fatal, logger.KeyError, err)

	if r.store != nil {
		if saveErr := r.store.Save(ctx, report); saveErr != nil {
			return report.CrashID, saveErr
		}
	}
	r.recorded.Add(1)
	return report.CrashID, nil
}

// RecordPanic stores a report for a recovered panic value. Its signature
// matches mainloop.PanicHandler.
func (r *Reporter) RecordPanic(recovered any, stack []byte) {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("%v", recovered)
	}
	if _, saveErr := r.Record(context.Background(), KindPanic, err, stack, true); saveErr != nil {
		logger.Error("Failed to persist crash report", logger.KeyError, saveErr)
	}
}

// Recover records a panic in the calling goroutine and re-panics. Use it
// as `defer reporter.Recover()`.
func (r *Reporter) Recover() {
	if p := recover(); p != nil {
		r.RecordPanic(p, debug.Stack())
		panic(p)
	}
}

// Reports lists stored reports, newest first.
func (r *Reporter) Reports(ctx context.Context, limit int) ([]Report, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.List(ctx, limit)
}

// Close closes the store.
func (r *Reporter) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
