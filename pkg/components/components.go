// Package components builds the process-wide registry from configuration.
//
// Build only records constructors; the engine, stores and caches are
// created the first time the bootstrap sequence (or a memory-pressure
// callback) asks for them.
package components

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/internal/telemetry"
	"github.com/marmos91/kestrel/pkg/account"
	"github.com/marmos91/kestrel/pkg/addons"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/config"
	"github.com/marmos91/kestrel/pkg/crash"
	"github.com/marmos91/kestrel/pkg/engine/chromium"
	"github.com/marmos91/kestrel/pkg/engine/headless"
	"github.com/marmos91/kestrel/pkg/icons"
	"github.com/marmos91/kestrel/pkg/metrics"
	"github.com/marmos91/kestrel/pkg/process"
	"github.com/marmos91/kestrel/pkg/push"
	"github.com/marmos91/kestrel/pkg/registry"
	"github.com/marmos91/kestrel/pkg/session"
	"github.com/marmos91/kestrel/pkg/session/badger"
	"github.com/marmos91/kestrel/pkg/webext"
)

// Components owns everything built from one configuration.
type Components struct {
	cfg     *config.Config
	version string

	Gate     *process.Gate
	Registry *registry.Registry
	Crash    *crash.Reporter
	Metrics  metrics.BootstrapMetrics

	crashStore *crash.GORMStore
	sessions   *registry.Lazy[*session.Manager]
	updater    *registry.Lazy[*addons.Updater]
}

// Build assembles the components described by cfg. Nothing expensive
// happens here except opening the crash store when crash reporting is
// enabled; a store that cannot be opened leaves the reporter log-only.
func Build(cfg *config.Config, version string) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("components: nil config")
	}

	c := &Components{
		cfg:     cfg,
		version: version,
		Gate:    process.NewGate(cfg.Process.MainProcess, identity(cfg.Process.Identity)),
		Metrics: metrics.NewBootstrapMetrics(),
	}

	var store crash.Store
	if cfg.CrashReporting.Enabled {
		s, err := crash.OpenStore(cfg.CrashReporting.Database.StoreConfig())
		if err != nil {
			logger.Warn("Crash store unavailable; reports will only be logged", logger.Err(err))
		} else {
			c.crashStore = s
			store = s
		}
	}
	c.Crash = crash.NewReporter(store, c.Gate.ProcessName(), version)

	c.sessions = registry.NewLazy(c.newSessionManager)
	c.updater = registry.NewLazy(func() (*addons.Updater, error) { return addons.NewUpdater(), nil })

	c.Registry = registry.New(registry.Factories{
		Engine:           c.newEngine,
		AddonManager:     c.newAddonManager,
		AddonUpdater:     func() (browser.AddonUpdater, error) { return c.updater.Get() },
		AddonProvider:    func() (browser.AddonProvider, error) { return addons.NewProvider(), nil },
		ExtensionSupport: func() (browser.ExtensionSupport, error) { return webext.New(), nil },
		SessionManager:   func() (browser.SessionManager, error) { return c.sessions.Get() },
		Store:            func() (browser.Store, error) { return c.sessions.Get() },
		TabsUseCases:     func() (browser.TabsUseCases, error) { return c.sessions.Get() },
		Icons:            c.newIcons,
		Telemetry:        c.newTelemetry,
		PushProcessor:    func() (browser.PushProcessor, error) { return push.NewProcessor(), nil },
		AccountManager: func() (browser.AccountManager, error) {
			return account.NewManager(cfg.Push.AccountHistory), nil
		},
		Push: c.newPush,
	})

	return c, nil
}

func identity(name string) process.IdentityFunc {
	if name == "" {
		return nil
	}
	return process.StaticIdentity(name)
}

func (c *Components) newEngine() (browser.Engine, error) {
	switch c.cfg.Engine.Type {
	case "headless":
		return headless.New(headless.Config{WarmUpDelay: c.cfg.Engine.WarmUpDelay}), nil
	case "chromium":
		ch := c.cfg.Engine.Chromium
		return chromium.New(chromium.Config{
			DebuggerURL: ch.DebuggerURL,
			Bin:         ch.Bin,
			Headless:    ch.Headless,
			PushTimeout: ch.PushTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine type: %s", c.cfg.Engine.Type)
	}
}

func (c *Components) newAddonManager() (browser.AddonManager, error) {
	installed := make([]browser.Addon, 0, len(c.cfg.Addons))
	for _, a := range c.cfg.Addons {
		installed = append(installed, browser.Addon{
			ID:      a.ID,
			Name:    a.Name,
			Version: a.Version,
			Enabled: a.Enabled,
		})
	}
	return addons.NewManager(installed...), nil
}

// newSessionManager backs the session manager, the store and the tabs use
// cases with one instance. Snapshots are restored before it is returned.
func (c *Components) newSessionManager() (*session.Manager, error) {
	opts := []session.Option{session.WithMetrics(metrics.NewStorageMetrics())}

	sc := c.cfg.Sessions
	if sc.Persist {
		storage, err := badger.Open(badger.Config{Path: sc.Path, InMemory: sc.InMemory})
		if err != nil {
			return nil, fmt.Errorf("open session storage: %w", err)
		}
		opts = append(opts, session.WithStorage(storage))
	}

	m := session.NewManager(opts...)
	if err := m.Restore(context.Background()); err != nil {
		logger.Warn("Failed to restore sessions", logger.Err(err))
	}
	return m, nil
}

func (c *Components) newIcons() (browser.IconCache, error) {
	return icons.New(icons.Config{
		MaxEntries: c.cfg.Icons.MaxEntries,
		MaxBytes:   int64(c.cfg.Icons.MaxBytes),
	}, metrics.NewIconMetrics())
}

func (c *Components) newTelemetry() ([]browser.Telemetry, error) {
	t := c.cfg.Telemetry
	return []browser.Telemetry{
		telemetry.NewTracingService(telemetry.Config{
			Enabled:        t.Enabled,
			ServiceName:    "kestrel",
			ServiceVersion: c.version,
			ProcessName:    c.Gate.ProcessName(),
			Role:           c.Gate.Role().String(),
			Endpoint:       t.Endpoint,
			Insecure:       t.Insecure,
			SampleRate:     t.SampleRate,
			FlushTimeout:   c.cfg.ShutdownTimeout,
		}),
		telemetry.NewProfilingService(telemetry.ProfilingConfig{
			Enabled:        t.Profiling.Enabled,
			ServiceName:    "kestrel",
			ServiceVersion: c.version,
			Endpoint:       t.Profiling.Endpoint,
			ProfileTypes:   t.Profiling.ProfileTypes,
		}),
	}, nil
}

func (c *Components) newPush() (push.Config, error) {
	if !c.cfg.Push.Enabled {
		return push.NotConfigured(), nil
	}
	return push.Configured(push.NewRelay()), nil
}

// PendingPermissions returns the permission requests forwarded by web
// extensions that have not been resolved yet.
func (c *Components) PendingPermissions() []browser.PermissionRequest {
	u, ok := c.updater.Peek()
	if !ok {
		return nil
	}
	return u.Pending()
}

// SessionStats summarizes the session manager, if it has been built.
func (c *Components) SessionStats() (session.Stats, bool) {
	m, ok := c.sessions.Peek()
	if !ok {
		return session.Stats{}, false
	}
	return m.Stats(), true
}

// Close releases everything that was built: telemetry first, then session
// storage, then the engine, then the crash store.
func (c *Components) Close(ctx context.Context) error {
	var errs []error

	if c.Registry.Constructed(registry.NameTelemetry) {
		services, _ := c.Registry.Telemetry()
		for i := len(services) - 1; i >= 0; i-- {
			if err := services[i].Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop %s: %w", services[i].Name(), err))
			}
		}
	}

	// The registry only closes the session manager when it was reached
	// through the store accessor.
	if m, ok := c.sessions.Peek(); ok && !c.Registry.Constructed(registry.NameStore) {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
	}
	if err := c.Registry.Close(); err != nil {
		errs = append(errs, err)
	}

	if c.crashStore != nil {
		if err := c.crashStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close crash store: %w", err))
		}
	}

	return errors.Join(errs...)
}
