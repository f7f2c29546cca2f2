package browser

import "context"

// EngineSession is the engine-side handle of a single tab.
type EngineSession interface {
	URL() string
	Close() error
}

// Engine is the web rendering engine.
type Engine interface {
	// Name identifies the implementation (headless, chromium).
	Name() string

	// WarmUp brings the engine runtime up. It must succeed before any
	// session can be created.
	WarmUp(ctx context.Context) error

	// CreateEngineSession opens a new engine-side tab for url.
	CreateEngineSession(ctx context.Context, url string) (EngineSession, error)

	// DeliverPush hands a web-push payload to the service worker
	// registered for scope.
	DeliverPush(ctx context.Context, scope string, payload []byte) error

	Close() error
}
