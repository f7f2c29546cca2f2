package bootstrap

import (
	"context"
	"os"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/crash"
)

// CrashReporter is the crash-reporting backend. *crash.Reporter
// implements it.
type CrashReporter interface {
	Install(enabled bool)
	Record(ctx context.Context, kind string, err error, stack []byte, fatal bool) (string, error)
	RecordPanic(recovered any, stack []byte)
}

var _ CrashReporter = (*crash.Reporter)(nil)

// InstallCrashReporting installs the crash hook when enabled is true.
// It runs in every process; a nil reporter is ignored.
func InstallCrashReporting(reporter CrashReporter, enabled bool) {
	if reporter == nil {
		logger.Debug("No crash reporter configured")
		return
	}
	reporter.Install(enabled)
}

// FatalHandler handles the failure of a mandatory wiring step. It
// normally does not return.
type FatalHandler func(ctx context.Context, err error)

// ExitOnFatal returns the default fatal handler: the failure is recorded
// with the crash reporter (if any), logged, and the process exits with
// code.
func ExitOnFatal(reporter CrashReporter, code int) FatalHandler {
	return exitOnFatal(reporter, code, os.Exit)
}

func exitOnFatal(reporter CrashReporter, code int, exit func(int)) FatalHandler {
	return func(ctx context.Context, err error) {
		step, _ := FailedStep(err)
		if reporter != nil {
			if _, saveErr := reporter.Record(ctx, crash.KindFatal, err, nil, true); saveErr != nil {
				logger.ErrorCtx(ctx, "Failed to persist crash report", logger.Err(saveErr))
			}
		}
		logger.ErrorCtx(ctx, "Mandatory subsystem failed, exiting",
			logger.KeyStep, step, logger.Err(err), "exit_code", code)
		_ = logger.Close()
		exit(code)
	}
}
