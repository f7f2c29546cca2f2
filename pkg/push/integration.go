package push

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/browser"
)

// ErrAlreadyStarted is returned when an integration is started twice.
var ErrAlreadyStarted = errors.New("push integration already started")

// EngineIntegration forwards web-push messages to the engine, which
// dispatches them to the matching service worker.
type EngineIntegration struct {
	engine  browser.Engine
	feature browser.PushFeature
	exclude string
	once    sync.Once
}

// NewEngineIntegration routes every scope except excludeScope to engine.
// excludeScope is normally the account scope, handled separately.
func NewEngineIntegration(engine browser.Engine, feature browser.PushFeature, excludeScope string) *EngineIntegration {
	return &EngineIntegration{engine: engine, feature: feature, exclude: excludeScope}
}

// Start registers the integration with the push feature.
func (e *EngineIntegration) Start() error {
	started := false
	e.once.Do(func() {
		e.feature.Register(e)
		started = true
	})
	if !started {
		return ErrAlreadyStarted
	}
	return nil
}

// Accepts implements ScopedObserver.
func (e *EngineIntegration) Accepts(scope string) bool {
	return scope != e.exclude
}

// OnMessageReceived implements browser.PushObserver.
func (e *EngineIntegration) OnMessageReceived(ctx context.Context, scope string, payload []byte) error {
	if err := e.engine.DeliverPush(ctx, scope, payload); err != nil {
		return fmt.Errorf("deliver push to engine: %w", err)
	}
	return nil
}

// AccountIntegration routes account-scoped messages to the account
// manager. The manager is resolved on the first message, not at start.
type AccountIntegration struct {
	feature browser.PushFeature
	scope   string
	manager func() (browser.AccountManager, error)
	once    sync.Once
}

// NewAccountIntegration routes messages for scope to the manager returned
// by resolve.
func NewAccountIntegration(feature browser.PushFeature, scope string, resolve func() (browser.AccountManager, error)) *AccountIntegration {
	return &AccountIntegration{feature: feature, scope: scope, manager: resolve}
}

// Start registers the integration with the push feature.
func (a *AccountIntegration) Start() error {
	started := false
	a.once.Do(func() {
		a.feature.Register(a)
		started = true
	})
	if !started {
		return ErrAlreadyStarted
	}
	return nil
}

// Accepts implements ScopedObserver.
func (a *AccountIntegration) Accepts(scope string) bool {
	return scope == a.scope
}

// OnMessageReceived implements browser.PushObserver.
func (a *AccountIntegration) OnMessageReceived(ctx context.Context, scope string, payload []byte) error {
	manager, err := a.manager()
	if err != nil {
		return fmt.Errorf("resolve account manager: %w", err)
	}
	logger.DebugCtx(ctx, "Routing account push message",
		logger.KeyScope, scope, logger.KeyPayloadBytes, len(payload))
	return manager.HandlePushMessage(ctx, payload)
}
