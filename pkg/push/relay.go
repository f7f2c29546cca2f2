package push

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/browser"
)

var (
	// ErrNotInitialized is returned when a message arrives before Initialize.
	ErrNotInitialized = errors.New("push feature not initialized")

	// ErrNoObserver is returned when no observer accepted a message.
	ErrNoObserver = errors.New("no push observer for scope")
)

// ScopedObserver is an observer that only wants messages for some scopes.
type ScopedObserver interface {
	browser.PushObserver
	Accepts(scope string) bool
}

// Relay is the default push feature. It fans incoming messages out to
// registered observers once initialized.
type Relay struct {
	mu          sync.RWMutex
	observers   []browser.PushObserver
	initialized bool
}

// NewRelay returns an uninitialized relay.
func NewRelay() *Relay {
	return &Relay{}
}

// Initialize starts accepting messages. Calling it again is a no-op.
func (r *Relay) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}
	r.initialized = true
	logger.DebugCtx(ctx, "Push relay initialized", "observers", len(r.observers))
	return nil
}

// Register adds an observer. Observers may be registered before Initialize.
func (r *Relay) Register(observer browser.PushObserver) {
	r.mu.Lock()
	r.observers = append(r.observers, observer)
	r.mu.Unlock()
}

// OnMessage delivers payload to every observer accepting scope. Observer
// errors are joined and returned.
func (r *Relay) OnMessage(ctx context.Context, scope string, payload []byte) error {
	r.mu.RLock()
	initialized := r.initialized
	observers := append([]browser.PushObserver(nil), r.observers...)
	r.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}

	var (
		delivered int
		errs      []error
	)
	for _, obs := range observers {
		if scoped, ok := obs.(ScopedObserver); ok && !scoped.Accepts(scope) {
			continue
		}
		delivered++
		if err := obs.OnMessageReceived(ctx, scope, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if delivered == 0 {
		return fmt.Errorf("%w: %s", ErrNoObserver, scope)
	}
	return errors.Join(errs...)
}
