package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/lifecycle"
	"github.com/marmos91/kestrel/pkg/metrics"
	"github.com/marmos91/kestrel/pkg/registry"
)

// Wiring step names, as they appear in logs, spans and metrics.
const (
	StepEngine        = "engine_warm_up"
	StepAddons        = "addon_provider"
	StepWebExtensions = "web_extensions"
	StepTelemetry     = "telemetry"
	StepPush          = "push"
)

// StepResult is the outcome of one wiring step.
type StepResult struct {
	Step     string        `json:"step"`
	Optional bool          `json:"optional"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
}

// Wiring connects the subsystems held by the registry, once.
type Wiring struct {
	reg          *registry.Registry
	signal       *lifecycle.Signal
	onFatal      FatalHandler
	metrics      metrics.BootstrapMetrics
	accountScope string

	ran     atomic.Bool
	results atomic.Pointer[[]StepResult]
}

// WiringOption configures a Wiring.
type WiringOption func(*Wiring)

// WithFatalHandler replaces the handler called when a mandatory step fails.
func WithFatalHandler(h FatalHandler) WiringOption {
	return func(w *Wiring) {
		w.onFatal = h
	}
}

// WithWiringMetrics records step durations and failures.
func WithWiringMetrics(m metrics.BootstrapMetrics) WiringOption {
	return func(w *Wiring) {
		w.metrics = m
	}
}

// WithAccountScope sets the push scope routed to the account manager.
func WithAccountScope(scope string) WiringOption {
	return func(w *Wiring) {
		w.accountScope = scope
	}
}

// NewWiring returns the wiring sequence for reg. signal is set once every
// step has run.
func NewWiring(reg *registry.Registry, signal *lifecycle.Signal, opts ...WiringOption) *Wiring {
	w := &Wiring{reg: reg, signal: signal, onFatal: ExitOnFatal(nil, 1)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type step struct {
	name     string
	optional bool
	run      func(ctx context.Context) error
}

// Run executes the wiring steps in order. It must run on the main loop.
//
// A failing mandatory step is wrapped in ErrFatal, handed to the fatal
// handler and returned; later steps do not run and the signal stays
// false. Failures of optional steps, panics included, are logged and
// counted and wiring continues.
func (w *Wiring) Run(ctx context.Context) error {
	if !w.ran.CompareAndSwap(false, true) {
		return ErrAlreadyWired
	}

	steps := []step{
		{name: StepEngine, run: w.warmUpEngine},
		{name: StepAddons, run: w.registerAddonProvider},
		{name: StepWebExtensions, optional: true, run: w.initWebExtensions},
		{name: StepTelemetry, optional: true, run: w.startTelemetry},
		{name: StepPush, optional: true, run: w.wirePush},
	}

	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext("")
	}
	ctx = logger.WithContext(ctx, lc.WithPhase(PhaseScheduled.String()))

	results := make([]StepResult, 0, len(steps))
	defer func() { w.results.Store(&results) }()

	for _, s := range steps {
		stepCtx := logger.WithContext(ctx, logger.FromContext(ctx).WithStep(s.name))
		res, err := w.runStep(stepCtx, s)
		results = append(results, res)
		if err == nil {
			continue
		}

		if !s.optional {
			err = fatal(s.name, err)
			for _, rest := range steps[len(results):] {
				results = append(results, StepResult{Step: rest.name, Optional: rest.optional, Skipped: true})
			}
			w.results.Store(&results)
			w.onFatal(stepCtx, err)
			return err
		}

		metrics.RecordOptionalFailure(w.metrics, s.name)
		logger.WarnCtx(stepCtx, "Optional subsystem failed to initialize",
			logger.KeyStep, s.name, logger.Err(err))
	}

	if w.signal.Set() {
		metrics.SetReady(w.metrics, true)
		logger.InfoCtx(ctx, "Subsystems wired", logger.KeyDurationMs, logger.Duration(lc.StartTime))
	}
	return nil
}

// runStep times and traces one step. Panics in optional steps are
// recovered and returned as errors; panics in mandatory steps propagate.
func (w *Wiring) runStep(ctx context.Context, s step) (res StepResult, err error) {
	ctx, span := telemetry.StartStepSpan(ctx, s.name, s.optional)
	start := time.Now()

	defer func() {
		if s.optional {
			if p := recover(); p != nil {
				err = &panicError{value: p, stack: debug.Stack()}
			}
		}
		d := time.Since(start)
		telemetry.EndSpan(span, err)
		metrics.ObserveStep(w.metrics, s.name, d, err)

		res = StepResult{Step: s.name, Optional: s.optional, Duration: d}
		if err != nil {
			res.Error = err.Error()
		}
		logger.DebugCtx(ctx, "Wiring step finished",
			logger.KeyStep, s.name, logger.DurationMs(float64(d.Microseconds())/1000), logger.Err(err))
	}()

	err = s.run(ctx)
	return res, err
}

// Results returns the outcome of each step once Run has finished, or nil.
func (w *Wiring) Results() []StepResult {
	p := w.results.Load()
	if p == nil {
		return nil
	}
	return append([]StepResult(nil), (*p)...)
}

func (w *Wiring) warmUpEngine(ctx context.Context) error {
	engine, err := w.reg.Engine()
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	telemetry.SetAttributes(ctx, telemetry.Engine(engine.Name()))
	if err := engine.WarmUp(ctx); err != nil {
		return fmt.Errorf("warm up %s engine: %w", engine.Name(), err)
	}
	return nil
}

func (w *Wiring) registerAddonProvider(_ context.Context) error {
	provider, err := w.reg.AddonProvider()
	if err != nil {
		return fmt.Errorf("construct add-on provider: %w", err)
	}
	manager, err := w.reg.AddonManager()
	if err != nil {
		return fmt.Errorf("construct add-on manager: %w", err)
	}
	updater, err := w.reg.AddonUpdater()
	if err != nil {
		return fmt.Errorf("construct add-on updater: %w", err)
	}
	return provider.Initialize(manager, updater)
}

func (w *Wiring) initWebExtensions(_ context.Context) error {
	support, err := w.reg.ExtensionSupport()
	if err != nil {
		return fmt.Errorf("construct extension support: %w", err)
	}
	engine, err := w.reg.Engine()
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	store, err := w.reg.Store()
	if err != nil {
		return fmt.Errorf("construct store: %w", err)
	}
	return support.Initialize(engine, store, &tabOverrides{reg: w.reg})
}

// startTelemetry starts every telemetry subsystem. One failing subsystem
// does not prevent the others from starting.
func (w *Wiring) startTelemetry(ctx context.Context) error {
	subsystems, err := w.reg.Telemetry()
	if err != nil {
		return fmt.Errorf("construct telemetry: %w", err)
	}

	var errs []error
	for _, t := range subsystems {
		if err := startSubsystem(ctx, t.Name(), t.Start); err != nil {
			metrics.RecordOptionalFailure(w.metrics, StepTelemetry+"."+t.Name())
			logger.WarnCtx(ctx, "Telemetry subsystem failed to start",
				logger.KeySubsystem, t.Name(), logger.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			continue
		}
		logger.DebugCtx(ctx, "Telemetry subsystem started", logger.KeySubsystem, t.Name())
	}
	return errors.Join(errs...)
}

func startSubsystem(ctx context.Context, name string, start func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p, stack: debug.Stack()}
		}
	}()
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanStepPrefix+StepTelemetry+"."+name)
	defer func() { telemetry.EndSpan(span, err) }()
	return start(ctx)
}
