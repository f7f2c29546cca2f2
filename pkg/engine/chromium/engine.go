// Package chromium drives a Chromium instance over the DevTools protocol.
// WarmUp either attaches to a running browser through its debugger URL or
// launches one; push messages are handed to the page's service worker with
// ServiceWorker.deliverPushMessage.
package chromium

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/marmos91/kestrel/internal/logger"
	"github.com/marmos91/kestrel/pkg/browser"
	"github.com/marmos91/kestrel/pkg/engine"
)

// Config configures the Chromium engine.
type Config struct {
	// DebuggerURL attaches to an already running browser. When empty a
	// browser is launched.
	DebuggerURL string

	// Bin is the browser binary to launch. Empty lets rod locate or
	// download one.
	Bin string

	Headless bool

	// PushTimeout bounds the wait for a service worker registration.
	PushTimeout time.Duration
}

// Engine is the Chromium browser.Engine.
type Engine struct {
	cfg Config

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	sessions map[*Session]struct{}
}

var _ browser.Engine = (*Engine)(nil)

// New returns an engine that is not yet connected.
func New(cfg Config) *Engine {
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 10 * time.Second
	}
	return &Engine{cfg: cfg, sessions: make(map[*Session]struct{})}
}

// Name implements browser.Engine.
func (e *Engine) Name() string { return "chromium" }

// WarmUp connects to the browser, launching it first if needed.
func (e *Engine) WarmUp(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return nil
	}

	controlURL := e.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(e.cfg.Headless).Context(ctx)
		if e.cfg.Bin != "" {
			l = l.Bin(e.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chromium: %w", err)
		}
		controlURL = u
		e.launcher = l
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		e.killLauncher()
		return fmt.Errorf("connect to chromium: %w", err)
	}
	e.browser = b

	logger.InfoCtx(ctx, "Chromium engine connected", "launched", e.launcher != nil)
	return nil
}

// CreateEngineSession opens a new page at url.
func (e *Engine) CreateEngineSession(ctx context.Context, url string) (browser.EngineSession, error) {
	e.mu.Lock()
	b := e.browser
	e.mu.Unlock()
	if b == nil {
		return nil, engine.ErrNotWarm
	}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	s := &Session{url: url, page: page, engine: e}
	e.mu.Lock()
	e.sessions[s] = struct{}{}
	e.mu.Unlock()
	return s, nil
}

// DeliverPush hands payload to the service worker registered for scope.
// A page on the scope's origin is used, or opened when none exists.
func (e *Engine) DeliverPush(ctx context.Context, scope string, payload []byte) error {
	origin, err := Origin(scope)
	if err != nil {
		return err
	}

	page, err := e.pageFor(ctx, origin, scope)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.PushTimeout)
	defer cancel()

	var registration proto.ServiceWorkerRegistrationID
	wait := page.Context(ctx).EachEvent(func(ev *proto.ServiceWorkerWorkerRegistrationUpdated) bool {
		for _, r := range ev.Registrations {
			if r.ScopeURL == scope && !r.IsDeleted {
				registration = r.RegistrationID
				return true
			}
		}
		return false
	})

	if err := (proto.ServiceWorkerEnable{}).Call(page); err != nil {
		return fmt.Errorf("enable service worker domain: %w", err)
	}
	wait()

	if registration == "" {
		if ctx.Err() != nil {
			return fmt.Errorf("no service worker registered for %s: %w", scope, ctx.Err())
		}
		return fmt.Errorf("no service worker registered for %s", scope)
	}

	err = proto.ServiceWorkerDeliverPushMessage{
		Origin:         origin,
		RegistrationID: registration,
		Data:           string(payload),
	}.Call(page)
	if err != nil {
		return fmt.Errorf("deliver push message: %w", err)
	}
	return nil
}

func (e *Engine) pageFor(ctx context.Context, origin, scope string) (*rod.Page, error) {
	e.mu.Lock()
	for s := range e.sessions {
		if o, err := Origin(s.url); err == nil && o == origin {
			e.mu.Unlock()
			return s.page, nil
		}
	}
	e.mu.Unlock()

	es, err := e.CreateEngineSession(ctx, scope)
	if err != nil {
		return nil, err
	}
	return es.(*Session).page, nil
}

// Close closes every page and the browser, and kills a launched process.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for s := range e.sessions {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	clear(e.sessions)

	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		e.browser = nil
	}
	e.killLauncher()
	return errors.Join(errs...)
}

// killLauncher must be called with e.mu held.
func (e *Engine) killLauncher() {
	if e.launcher != nil {
		e.launcher.Kill()
		e.launcher.Cleanup()
		e.launcher = nil
	}
}

// Session is a Chromium page.
type Session struct {
	url    string
	page   *rod.Page
	engine *Engine
}

// URL implements browser.EngineSession.
func (s *Session) URL() string { return s.url }

// Close implements browser.EngineSession.
func (s *Session) Close() error {
	s.engine.mu.Lock()
	_, open := s.engine.sessions[s]
	delete(s.engine.sessions, s)
	s.engine.mu.Unlock()

	if !open {
		return engine.ErrSessionClosed
	}
	return s.page.Close()
}

// Origin returns the serialized origin (scheme://host[:port]) of rawURL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid scope %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid scope %q: absolute URL required", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
