package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/lifecycle"
	"github.com/marmos91/kestrel/pkg/metrics"
	"github.com/marmos91/kestrel/pkg/process"
	"github.com/marmos91/kestrel/pkg/registry"
)

// Options assembles an Application.
type Options struct {
	// Logging is applied in every process. A zero value keeps the
	// current logger settings.
	Logging logger.Config

	// Crash is the crash-reporting backend; nil disables it.
	Crash CrashReporter

	// CrashReportingEnabled is the single flag that installs the hook.
	CrashReportingEnabled bool

	Gate     *process.Gate
	Registry *registry.Registry
	Loop     Scheduler

	// Delay defers wiring when HostReady is nil. Default: DefaultDelay.
	Delay time.Duration

	// HostReady, when set, schedules wiring once it fires.
	HostReady <-chan struct{}

	// AccountScope is the push scope handled by the account manager.
	AccountScope string

	// OnFatal handles a failing mandatory step.
	// Default: ExitOnFatal(Crash, 1).
	OnFatal FatalHandler

	Metrics metrics.BootstrapMetrics
}

// Application is the process entry point of the browser shell.
type Application struct {
	opts Options

	signal      *lifecycle.Signal
	wiring      *Wiring
	initializer *Initializer
	memory      *MemoryRelay

	created atomic.Bool
}

// New validates opts and builds the application. Nothing is constructed
// in the registry until wiring runs.
func New(opts Options) (*Application, error) {
	if opts.Gate == nil {
		return nil, errors.New("bootstrap: process gate is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("bootstrap: registry is required")
	}
	if opts.Loop == nil {
		return nil, errors.New("bootstrap: main loop is required")
	}
	if opts.OnFatal == nil {
		opts.OnFatal = ExitOnFatal(opts.Crash, 1)
	}

	signal := lifecycle.NewSignal()
	wiring := NewWiring(opts.Registry, signal,
		WithFatalHandler(opts.OnFatal),
		WithWiringMetrics(opts.Metrics),
		WithAccountScope(opts.AccountScope),
	)

	initOpts := []InitializerOption{
		WithDelay(opts.Delay),
		WithInitializerMetrics(opts.Metrics),
	}
	if opts.HostReady != nil {
		initOpts = append(initOpts, WithHostReady(opts.HostReady))
	}

	return &Application{
		opts:        opts,
		signal:      signal,
		wiring:      wiring,
		initializer: NewInitializer(opts.Loop, wiring.Run, initOpts...),
		memory:      NewMemoryRelay(opts.Gate, opts.Registry, opts.Metrics),
	}, nil
}

// OnCreate is the process start callback. Logging and crash reporting
// are installed in every process; the rest only in the primary one.
// Only the first call has any effect.
func (a *Application) OnCreate(ctx context.Context) error {
	if !a.created.CompareAndSwap(false, true) {
		return nil
	}

	if err := InstallLogging(a.opts.Logging); err != nil {
		return err
	}
	InstallCrashReporting(a.opts.Crash, a.opts.CrashReportingEnabled)

	role := a.opts.Gate.Role()
	lc := logger.NewLogContext(role.String())
	ctx = logger.WithContext(ctx, lc)

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanOnCreate)
	defer span.End()
	telemetry.SetAttributes(ctx,
		telemetry.Role(role.String()),
		telemetry.ProcessName(a.opts.Gate.ProcessName()),
	)

	if role != process.RolePrimary {
		logger.InfoCtx(ctx, "Secondary process; skipping subsystem initialization",
			logger.KeyProcessName, a.opts.Gate.ProcessName(),
			logger.KeyMainProcess, a.opts.Gate.MainProcess())
		return nil
	}

	logger.InfoCtx(ctx, "Primary process started", logger.KeyProcessName, a.opts.Gate.ProcessName())
	return a.initializer.Start(ctx)
}

// OnTrimMemory is the host memory-pressure callback. It may be called
// any number of times, from any goroutine.
func (a *Application) OnTrimMemory(level browser.MemoryLevel) {
	a.memory.OnMemoryPressure(level)
}

// Signal is set once every subsystem has been wired.
func (a *Application) Signal() *lifecycle.Signal {
	return a.signal
}

// Phase returns the deferred initializer phase.
func (a *Application) Phase() Phase {
	return a.initializer.Phase()
}

// Role returns the process role.
func (a *Application) Role() process.Role {
	return a.opts.Gate.Role()
}

// Steps returns the wiring step results, or nil before wiring finished.
func (a *Application) Steps() []StepResult {
	return a.wiring.Results()
}

// Registry returns the component registry.
func (a *Application) Registry() *registry.Registry {
	return a.opts.Registry
}
