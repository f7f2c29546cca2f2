// Package webext hosts the web-extension runtime glue: it binds the engine,
// the browser store and the host tab callbacks, and routes extension
// requests to them.
package webext

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/kestrel/pkg/browser"
)

var (
	// ErrAlreadyInitialized is returned when Initialize is called again.
	// Callbacks are bound once and never replaced.
	ErrAlreadyInitialized = errors.New("web extension support already initialized")

	// ErrNotInitialized is returned by extension requests before Initialize.
	ErrNotInitialized = errors.New("web extension support not initialized")
)

// Support is the default browser.ExtensionSupport.
type Support struct {
	mu        sync.RWMutex
	runtime   browser.Engine
	store     browser.Store
	callbacks browser.ExtensionCallbacks
}

var _ browser.ExtensionSupport = (*Support)(nil)

// New returns uninitialized extension support.
func New() *Support {
	return &Support{}
}

// Initialize binds runtime, store and callbacks.
func (s *Support) Initialize(runtime browser.Engine, store browser.Store, callbacks browser.ExtensionCallbacks) error {
	if runtime == nil || store == nil || callbacks == nil {
		return errors.New("web extension support: runtime, store and callbacks are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.callbacks != nil {
		return ErrAlreadyInitialized
	}
	s.runtime = runtime
	s.store = store
	s.callbacks = callbacks
	return nil
}

// Initialized reports whether callbacks are bound.
func (s *Support) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.callbacks != nil
}

func (s *Support) bound() (browser.Engine, browser.ExtensionCallbacks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.callbacks == nil {
		return nil, nil, ErrNotInitialized
	}
	return s.runtime, s.callbacks, nil
}

// OpenTab handles an extension's tabs.create: the engine creates the
// session and the host adds it as a selected tab.
func (s *Support) OpenTab(ctx context.Context, url string) (string, error) {
	runtime, cb, err := s.bound()
	if err != nil {
		return "", err
	}
	es, err := runtime.CreateEngineSession(ctx, url)
	if err != nil {
		return "", fmt.Errorf("create engine session: %w", err)
	}
	return cb.NewTab(url, es), nil
}

// CloseTab handles an extension's tabs.remove.
func (s *Support) CloseTab(id string) error {
	_, cb, err := s.bound()
	if err != nil {
		return err
	}
	cb.CloseTab(id)
	return nil
}

// SelectTab handles an extension's tabs.update with active=true.
func (s *Support) SelectTab(id string) error {
	_, cb, err := s.bound()
	if err != nil {
		return err
	}
	cb.SelectTab(id)
	return nil
}

// RequestPermission forwards an update permission prompt.
func (s *Support) RequestPermission(req browser.PermissionRequest) error {
	_, cb, err := s.bound()
	if err != nil {
		return err
	}
	cb.RequestPermission(req)
	return nil
}
