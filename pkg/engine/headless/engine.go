// Package headless implements an in-process engine without a renderer.
// It tracks sessions and records push deliveries so that the startup
// sequence can be run end to end without a browser binary.
package headless

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/engine"
)

// Config configures the engine.
type Config struct {
	// WarmUpDelay simulates runtime start-up cost.
	WarmUpDelay time.Duration
}

// Delivery is a recorded push delivery.
type Delivery struct {
	Scope       string    `json:"scope"`
	Bytes       int       `json:"bytes"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// Engine is the headless browser.Engine.
type Engine struct {
	cfg Config

	mu         sync.Mutex
	warm       bool
	sessions   map[*Session]struct{}
	deliveries []Delivery
}

var _ browser.Engine = (*Engine)(nil)

// New returns a cold engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, sessions: make(map[*Session]struct{})}
}

// Name implements browser.Engine.
func (e *Engine) Name() string { return "headless" }

// WarmUp waits for the configured delay. Repeated calls are cheap.
func (e *Engine) WarmUp(ctx context.Context) error {
	e.mu.Lock()
	warm := e.warm
	e.mu.Unlock()
	if warm {
		return nil
	}

	if e.cfg.WarmUpDelay > 0 {
		t := time.NewTimer(e.cfg.WarmUpDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.mu.Lock()
	e.warm = true
	e.mu.Unlock()
	return nil
}

// Warm reports whether WarmUp has completed.
func (e *Engine) Warm() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.warm
}

// CreateEngineSession implements browser.Engine.
func (e *Engine) CreateEngineSession(ctx context.Context, url string) (browser.EngineSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.warm {
		return nil, engine.ErrNotWarm
	}
	s := &Session{url: url, engine: e}
	e.sessions[s] = struct{}{}
	return s, nil
}

// DeliverPush records the delivery.
func (e *Engine) DeliverPush(ctx context.Context, scope string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.warm {
		return engine.ErrNotWarm
	}
	e.deliveries = append(e.deliveries, Delivery{
		Scope:       scope,
		Bytes:       len(payload),
		DeliveredAt: time.Now().UTC(),
	})
	return nil
}

// Deliveries returns the recorded push deliveries.
func (e *Engine) Deliveries() []Delivery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Delivery(nil), e.deliveries...)
}

// OpenSessions returns the number of live sessions.
func (e *Engine) OpenSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Close closes every session and returns the engine to the cold state.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for s := range e.sessions {
		s.closed = true
	}
	clear(e.sessions)
	e.warm = false
	return nil
}

// Session is a headless engine session.
type Session struct {
	url    string
	engine *Engine
	closed bool
}

// URL implements browser.EngineSession.
func (s *Session) URL() string { return s.url }

// Close implements browser.EngineSession.
func (s *Session) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	if s.closed {
		return engine.ErrSessionClosed
	}
	s.closed = true
	delete(s.engine.sessions, s)
	return nil
}
