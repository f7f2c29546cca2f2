// Package mainloop implements the single-threaded task queue on which the
// deferred subsystem wiring runs. Tasks execute strictly one at a time in
// posting order.
package mainloop

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"
)

var (
	// ErrLoopStopped is returned when posting to a loop that has been stopped.
	ErrLoopStopped = errors.New("main loop stopped")

	// ErrAlreadyRunning is returned by Run when the loop is already running.
	ErrAlreadyRunning = errors.New("main loop already running")
)

// PanicHandler is called with the recovered value and stack trace when a
// task panics. The panic is re-raised after the handler returns.
type PanicHandler func(recovered any, stack []byte)

// Option configures a Loop.
type Option func(*Loop)

// WithPanicHandler installs the handler invoked before a task panic is
// re-raised.
func WithPanicHandler(h PanicHandler) Option {
	return func(l *Loop) {
		l.onPanic = h
	}
}

// Loop is a serial task queue drained by a single goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	running bool
	timers  map[*time.Timer]struct{}
	stopCh  chan struct{}
	onPanic PanicHandler
}

// New returns a loop that accepts tasks immediately. Tasks run once Run
// is called.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		timers: make(map[*time.Timer]struct{}),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post enqueues fn.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// PostDelayed enqueues fn after d has elapsed. The loop must not be
// stopped at call time; if it stops before d elapses, fn is dropped.
func (l *Loop) PostDelayed(d time.Duration, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrLoopStopped
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		_ = l.Post(fn)
	})
	l.timers[t] = struct{}{}
	return nil
}

// Run drains the queue until ctx is done or Stop is called. It returns
// nil after Stop and ctx.Err() on cancellation. A panicking task is
// passed to the panic handler and then re-raised on the loop goroutine.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	if l.stopped {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.execute(fn)
		}

		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.stopCh:
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if l.onPanic != nil {
				l.onPanic(r, debug.Stack())
			}
			panic(r)
		}
	}()
	fn()
}

// Stop stops the loop. Queued and delayed tasks that have not started
// are discarded. Stop is idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	l.stopped = true
	l.queue = nil
	for t := range l.timers {
		t.Stop()
	}
	clear(l.timers)
	close(l.stopCh)
}

// Stopped reports whether Stop has been called.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Pending returns the number of queued tasks, not counting delayed ones.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
