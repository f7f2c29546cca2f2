// Package registry owns the process-wide subsystem handles. Every handle
// is constructed lazily, at most once, on first access, so nothing heavy
// is built on the startup critical path or in secondary processes.
package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/push"
)

// Handle names, as accepted by Constructed.
const (
	NameEngine           = "engine"
	NameAddonManager     = "addon_manager"
	NameAddonUpdater     = "addon_updater"
	NameAddonProvider    = "addon_provider"
	NameExtensionSupport = "extension_support"
	NameSessionManager   = "session_manager"
	NameStore            = "store"
	NameTabsUseCases     = "tabs_use_cases"
	NameIcons            = "icons"
	NameTelemetry        = "telemetry"
	NamePushProcessor    = "push_processor"
	NameAccountManager   = "account_manager"
	NamePush             = "push"
)

// Factories holds one constructor per subsystem. Missing constructors
// make the corresponding accessor return ErrNoFactory.
type Factories struct {
	Engine           func() (browser.Engine, error)
	AddonManager     func() (browser.AddonManager, error)
	AddonUpdater     func() (browser.AddonUpdater, error)
	AddonProvider    func() (browser.AddonProvider, error)
	ExtensionSupport func() (browser.ExtensionSupport, error)
	SessionManager   func() (browser.SessionManager, error)
	Store            func() (browser.Store, error)
	TabsUseCases     func() (browser.TabsUseCases, error)
	Icons            func() (browser.IconCache, error)
	Telemetry        func() ([]browser.Telemetry, error)
	PushProcessor    func() (browser.PushProcessor, error)
	AccountManager   func() (browser.AccountManager, error)
	Push             func() (push.Config, error)
}

// Registry is the explicit ownership object for subsystem handles. Build
// one per process and pass it by pointer.
type Registry struct {
	engine           *Lazy[browser.Engine]
	addonManager     *Lazy[browser.AddonManager]
	addonUpdater     *Lazy[browser.AddonUpdater]
	addonProvider    *Lazy[browser.AddonProvider]
	extensionSupport *Lazy[browser.ExtensionSupport]
	sessionManager   *Lazy[browser.SessionManager]
	store            *Lazy[browser.Store]
	tabsUseCases     *Lazy[browser.TabsUseCases]
	icons            *Lazy[browser.IconCache]
	telemetry        *Lazy[[]browser.Telemetry]
	pushProcessor    *Lazy[browser.PushProcessor]
	accountManager   *Lazy[browser.AccountManager]
	push             *Lazy[push.Config]

	constructed map[string]func() bool
}

// New creates a registry. No factory runs until its accessor is called.
func New(f Factories) *Registry {
	r := &Registry{
		engine:           NewLazy(f.Engine),
		addonManager:     NewLazy(f.AddonManager),
		addonUpdater:     NewLazy(f.AddonUpdater),
		addonProvider:    NewLazy(f.AddonProvider),
		extensionSupport: NewLazy(f.ExtensionSupport),
		sessionManager:   NewLazy(f.SessionManager),
		store:            NewLazy(f.Store),
		tabsUseCases:     NewLazy(f.TabsUseCases),
		icons:            NewLazy(f.Icons),
		telemetry:        NewLazy(f.Telemetry),
		pushProcessor:    NewLazy(f.PushProcessor),
		accountManager:   NewLazy(f.AccountManager),
		push:             NewLazy(f.Push),
	}
	r.constructed = map[string]func() bool{
		NameEngine:           r.engine.Constructed,
		NameAddonManager:     r.addonManager.Constructed,
		NameAddonUpdater:     r.addonUpdater.Constructed,
		NameAddonProvider:    r.addonProvider.Constructed,
		NameExtensionSupport: r.extensionSupport.Constructed,
		NameSessionManager:   r.sessionManager.Constructed,
		NameStore:            r.store.Constructed,
		NameTabsUseCases:     r.tabsUseCases.Constructed,
		NameIcons:            r.icons.Constructed,
		NameTelemetry:        r.telemetry.Constructed,
		NamePushProcessor:    r.pushProcessor.Constructed,
		NameAccountManager:   r.accountManager.Constructed,
		NamePush:             r.push.Constructed,
	}
	return r
}

// Engine returns the rendering engine.
func (r *Registry) Engine() (browser.Engine, error) {
	return r.engine.Get()
}

func (r *Registry) AddonManager() (browser.AddonManager, error) {
	return r.addonManager.Get()
}

func (r *Registry) AddonUpdater() (browser.AddonUpdater, error) {
	return r.addonUpdater.Get()
}

func (r *Registry) AddonProvider() (browser.AddonProvider, error) {
	return r.addonProvider.Get()
}

func (r *Registry) ExtensionSupport() (browser.ExtensionSupport, error) {
	return r.extensionSupport.Get()
}

func (r *Registry) SessionManager() (browser.SessionManager, error) {
	return r.sessionManager.Get()
}

// Store returns the browser state store.
func (r *Registry) Store() (browser.Store, error) {
	return r.store.Get()
}

func (r *Registry) TabsUseCases() (browser.TabsUseCases, error) {
	return r.tabsUseCases.Get()
}

func (r *Registry) Icons() (browser.IconCache, error) {
	return r.icons.Get()
}

// Telemetry returns every analytics backend started during wiring.
func (r *Registry) Telemetry() ([]browser.Telemetry, error) {
	return r.telemetry.Get()
}

func (r *Registry) PushProcessor() (browser.PushProcessor, error) {
	return r.pushProcessor.Get()
}

// AccountManager returns the account manager. Push account integration
// resolves it only when the first account message arrives.
func (r *Registry) AccountManager() (browser.AccountManager, error) {
	return r.accountManager.Get()
}

// Push returns the push feature variant.
func (r *Registry) Push() (push.Config, error) {
	return r.push.Get()
}

// Constructed reports whether the named handle has been built. Unknown
// names report false.
func (r *Registry) Constructed(name string) bool {
	fn, ok := r.constructed[name]
	return ok && fn()
}

// Snapshot returns the construction state of every handle.
func (r *Registry) Snapshot() map[string]bool {
	out := make(map[string]bool, len(r.constructed))
	for name, fn := range r.constructed {
		out[name] = fn()
	}
	return out
}

// Names returns all handle names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructed))
	for name := range r.constructed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the store and icon handles that implement io.Closer, then
// the engine. Handles that were never constructed are left alone.
func (r *Registry) Close() error {
	var errs []error
	// Sessions hold engine sessions, so they go before the engine.
	for _, h := range []any{peekAny(r.store), peekAny(r.icons)} {
		if c, ok := h.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if engine, ok := r.engine.Peek(); ok {
		if err := engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
	}
	return errors.Join(errs...)
}

func peekAny[T any](l *Lazy[T]) any {
	v, ok := l.Peek()
	if !ok {
		return nil
	}
	return v
}
