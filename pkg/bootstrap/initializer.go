package bootstrap

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/metrics"
)

// DefaultDelay is how long wiring is deferred when the host does not
// report readiness.
const DefaultDelay = 100 * time.Millisecond

// Phase is the state of the deferred initializer.
type Phase int32

const (
	PhaseNotStarted Phase = iota
	PhaseScheduled
	PhaseWired
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseScheduled:
		return "scheduled"
	case PhaseWired:
		return "wired"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Scheduler runs tasks on the main loop. *mainloop.Loop implements it.
type Scheduler interface {
	Post(fn func()) error
	PostDelayed(d time.Duration, fn func()) error
}

// Initializer defers subsystem wiring until after process start.
//
// Phases move NotStarted -> Scheduled on the first Start, then to Wired
// when the task succeeds or Aborted when it fails. If the task cannot be
// scheduled the phase stays Scheduled.
type Initializer struct {
	loop      Scheduler
	delay     time.Duration
	hostReady <-chan struct{}
	task      func(ctx context.Context) error
	metrics   metrics.BootstrapMetrics

	phase atomic.Int32
}

// InitializerOption configures an Initializer.
type InitializerOption func(*Initializer)

// WithDelay sets the deferral used when no readiness channel is set.
// Non-positive values keep DefaultDelay.
func WithDelay(d time.Duration) InitializerOption {
	return func(i *Initializer) {
		if d > 0 {
			i.delay = d
		}
	}
}

// WithHostReady schedules the task when ready is closed (or receives)
// instead of after a delay.
func WithHostReady(ready <-chan struct{}) InitializerOption {
	return func(i *Initializer) {
		i.hostReady = ready
	}
}

// WithInitializerMetrics exports phase transitions.
func WithInitializerMetrics(m metrics.BootstrapMetrics) InitializerOption {
	return func(i *Initializer) {
		i.metrics = m
	}
}

// NewInitializer returns an initializer that runs task on loop.
func NewInitializer(loop Scheduler, task func(ctx context.Context) error, opts ...InitializerOption) *Initializer {
	i := &Initializer{loop: loop, delay: DefaultDelay, task: task}
	for _, opt := range opts {
		opt(i)
	}
	metrics.SetPhase(i.metrics, PhaseNotStarted.String())
	return i
}

// Phase returns the current phase.
func (i *Initializer) Phase() Phase {
	return Phase(i.phase.Load())
}

func (i *Initializer) setPhase(p Phase) {
	i.phase.Store(int32(p))
	metrics.SetPhase(i.metrics, p.String())
}

// Start schedules the task. Only the first call has any effect. A
// scheduling failure is logged, not returned: initialization then stays
// in the Scheduled phase and the lifecycle signal never fires.
func (i *Initializer) Start(ctx context.Context) error {
	if !i.phase.CompareAndSwap(int32(PhaseNotStarted), int32(PhaseScheduled)) {
		logger.DebugCtx(ctx, "Deferred initialization already started", logger.KeyPhase, i.Phase().String())
		return nil
	}
	metrics.SetPhase(i.metrics, PhaseScheduled.String())

	// The task outlives the caller: OnCreate returns long before wiring.
	runCtx := context.WithoutCancel(ctx)

	if i.hostReady != nil {
		logger.DebugCtx(ctx, "Wiring scheduled on host readiness", logger.KeyTrigger, "host_ready")
		go i.awaitHostReady(ctx, runCtx)
		return nil
	}

	if err := i.loop.PostDelayed(i.delay, func() { i.run(runCtx, "delay") }); err != nil {
		logger.ErrorCtx(ctx, "Failed to schedule deferred initialization", logger.Err(err))
		return nil
	}
	logger.DebugCtx(ctx, "Wiring scheduled", logger.KeyTrigger, "delay", logger.Delay(i.delay))
	return nil
}

func (i *Initializer) awaitHostReady(ctx, runCtx context.Context) {
	select {
	case <-i.hostReady:
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Host never reported ready; subsystems not wired", logger.Err(ctx.Err()))
		return
	}

	if err := i.loop.Post(func() { i.run(runCtx, "host_ready") }); err != nil {
		logger.ErrorCtx(ctx, "Failed to schedule deferred initialization", logger.Err(err))
	}
}

func (i *Initializer) run(ctx context.Context, trigger string) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanWiring)
	telemetry.SetAttributes(ctx, telemetry.Trigger(trigger))

	err := i.task(ctx)
	telemetry.EndSpan(span, err)

	if err != nil {
		i.setPhase(PhaseAborted)
		return
	}
	i.setPhase(PhaseWired)
}
