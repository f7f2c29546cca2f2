// Package lifecycle provides the one-shot readiness signal raised when the
// deferred subsystem wiring has completed.
package lifecycle

import (
	"context"
	"sync"
)

// Signal is an observable boolean that starts false and becomes true at
// most once. It never resets.
type Signal struct {
	mu        sync.Mutex
	set       bool
	done      chan struct{}
	observers []func()
}

// NewSignal returns a signal in the false state.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set transitions the signal to true and notifies observers. It reports
// whether this call performed the transition; later calls are no-ops.
func (s *Signal) Set() bool {
	s.mu.Lock()
	if s.set {
		s.mu.Unlock()
		return false
	}
	s.set = true
	observers := s.observers
	s.observers = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
	return true
}

// IsSet reports the current value.
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Observe registers fn to run once when the signal becomes true. If the
// signal is already true, fn runs immediately on the calling goroutine.
func (s *Signal) Observe(fn func()) {
	s.mu.Lock()
	if s.set {
		s.mu.Unlock()
		fn()
		return
	}
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Done returns a channel that is closed when the signal becomes true.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the signal is true or ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
