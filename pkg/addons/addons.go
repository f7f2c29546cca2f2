// Package addons provides the default add-on manager, updater and the
// dependency provider that hands both to background add-on workers.
package addons

import (
	"errors"
	"slices"
	"sync"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/browser"
)

var (
	// ErrAlreadyInitialized is returned when the provider is initialized twice.
	ErrAlreadyInitialized = errors.New("addon provider already initialized")

	// ErrNotInitialized is returned when a dependency is requested before Initialize.
	ErrNotInitialized = errors.New("addon provider not initialized")
)

// Manager keeps the list of installed add-ons.
type Manager struct {
	mu     sync.RWMutex
	addons []browser.Addon
}

// NewManager returns a manager with the given add-ons installed.
func NewManager(installed ...browser.Addon) *Manager {
	return &Manager{addons: slices.Clone(installed)}
}

// Installed returns a copy of the installed add-ons.
func (m *Manager) Installed() []browser.Addon {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.addons)
}

// Install adds or replaces an add-on by ID.
func (m *Manager) Install(addon browser.Addon) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.IndexFunc(m.addons, func(a browser.Addon) bool { return a.ID == addon.ID }); i >= 0 {
		m.addons[i] = addon
		return
	}
	m.addons = append(m.addons, addon)
}

// Updater queues permission requests raised by add-on updates until the
// user answers them.
type Updater struct {
	mu      sync.Mutex
	pending []browser.PermissionRequest
}

// NewUpdater returns an updater with no pending requests.
func NewUpdater() *Updater {
	return &Updater{}
}

// OnUpdatePermissionRequest queues req.
func (u *Updater) OnUpdatePermissionRequest(req browser.PermissionRequest) {
	u.mu.Lock()
	u.pending = append(u.pending, req)
	u.mu.Unlock()

	logger.Info("Add-on update requests permissions",
		logger.KeyAddonID, req.AddonID, "permissions", req.Permissions)
}

// Pending returns the queued permission requests.
func (u *Updater) Pending() []browser.PermissionRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.pending)
}

// Resolve drops the pending requests for addonID and reports whether any
// were queued.
func (u *Updater) Resolve(addonID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	before := len(u.pending)
	u.pending = slices.DeleteFunc(u.pending, func(r browser.PermissionRequest) bool {
		return r.AddonID == addonID
	})
	return len(u.pending) != before
}

// Provider is the dependency provider for add-on workers.
type Provider struct {
	mu      sync.RWMutex
	manager browser.AddonManager
	updater browser.AddonUpdater
}

// NewProvider returns an uninitialized provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Initialize binds the manager and updater. It may only succeed once.
func (p *Provider) Initialize(manager browser.AddonManager, updater browser.AddonUpdater) error {
	if manager == nil || updater == nil {
		return errors.New("addon provider: manager and updater are required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.manager != nil {
		return ErrAlreadyInitialized
	}
	p.manager = manager
	p.updater = updater
	return nil
}

// Manager returns the bound add-on manager.
func (p *Provider) Manager() (browser.AddonManager, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.manager == nil {
		return nil, ErrNotInitialized
	}
	return p.manager, nil
}

// Updater returns the bound add-on updater.
func (p *Provider) Updater() (browser.AddonUpdater, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.updater == nil {
		return nil, ErrNotInitialized
	}
	return p.updater, nil
}
