package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/bootstrap"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/components"
	"github.com/marmos91/kestrel/pkg/config"
	"github.com/marmos91/kestrel/pkg/diagnostics"
	"github.com/marmos91/kestrel/pkg/mainloop"
	"github.com/marmos91/kestrel/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/kestrel/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the application",
	Long: `Start the application in the foreground.

The process role is decided first: only the primary process wires the
engine, add-ons, web extensions, telemetry and push. Secondary processes
install logging and crash reporting and then idle on the main loop.

Signals:
  SIGINT, SIGTERM  shut down gracefully
  SIGUSR1          report RUNNING_LOW memory pressure

Examples:
  # Start with the default configuration file
  kestrel start

  # Start with a custom configuration file
  kestrel start --config /etc/kestrel/config.yaml

  # Override settings from the environment
  KESTREL_LOGGING_LEVEL=DEBUG kestrel start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	comps, err := components.Build(cfg, Version)
	if err != nil {
		return err
	}

	loop := mainloop.New(mainloop.WithPanicHandler(comps.Crash.RecordPanic))

	var hostReady chan struct{}
	if cfg.Startup.WaitForHostReady {
		hostReady = make(chan struct{})
	}

	app, err := bootstrap.New(bootstrap.Options{
		Logging:               logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output},
		Crash:                 comps.Crash,
		CrashReportingEnabled: cfg.CrashReporting.Enabled,
		Gate:                  comps.Gate,
		Registry:              comps.Registry,
		Loop:                  loop,
		Delay:                 cfg.Startup.Delay,
		HostReady:             hostReady,
		AccountScope:          cfg.Push.AccountScope,
		OnFatal:               bootstrap.ExitOnFatal(comps.Crash, cfg.Startup.FatalExitCode),
		Metrics:               comps.Metrics,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.OnCreate(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(loop.Run(gctx))
	})

	if hostReady != nil {
		// The host is ready once its main loop runs tasks.
		if err := loop.Post(func() { close(hostReady) }); err != nil {
			return err
		}
	}

	if cfg.Diagnostics.IsEnabled() {
		server := diagnostics.NewServer(diagnostics.Config{
			Address:      cfg.Diagnostics.Address,
			Port:         cfg.Diagnostics.Port,
			EnableDebug:  cfg.Diagnostics.EnableDebug,
			ReadTimeout:  cfg.Diagnostics.ReadTimeout,
			WriteTimeout: cfg.Diagnostics.WriteTimeout,
			IdleTimeout:  cfg.Diagnostics.IdleTimeout,
		}, app, diagnostics.Sources{
			Sessions:    comps.SessionStats,
			Permissions: comps.PendingPermissions,
			Version:     Version,
		})
		g.Go(func() error { return server.Start(gctx) })
	}

	g.Go(func() error {
		pressure := make(chan os.Signal, 1)
		notifyMemoryPressure(pressure)
		defer signal.Stop(pressure)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-pressure:
				app.OnTrimMemory(browser.TrimMemoryRunningLow)
			}
		}
	})

	if path := configPath(GetConfigFile()); path != "" {
		g.Go(func() error {
			return config.Watch(gctx, path, func(c *config.Config) {
				logger.SetLevel(c.Logging.Level)
				logger.Info("Log level reloaded", "level", c.Logging.Level)
			})
		})
	}

	logger.Info("Application running. Press Ctrl+C to stop.", logger.Role(app.Role().String()))

	runErr := g.Wait()
	logger.Info("Shutting down")
	loop.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := comps.Close(shutdownCtx); err != nil {
		logger.Error("Shutdown error", logger.Err(err))
	}
	_ = logger.Close()

	return runErr
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// configPath returns the file to watch, or "" when running on defaults.
func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return ""
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if path := configPath(configFile); path != "" {
		return path
	}
	return "defaults"
}
