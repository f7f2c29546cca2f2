package registry

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// ErrNoFactory is returned by a handle that was never given a constructor.
var ErrNoFactory = errors.New("no factory registered")

// PanicError records a constructor that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("constructor panicked: %v", e.Value)
}

// Lazy is a handle constructed exactly once, on first Get. The value and
// the construction error are both memoized: a failed construction is not
// retried.
type Lazy[T any] struct {
	once  sync.Once
	build func() (T, error)
	value T
	err   error
	built atomic.Bool
}

// NewLazy wraps build. A nil build yields ErrNoFactory on Get.
func NewLazy[T any](build func() (T, error)) *Lazy[T] {
	return &Lazy[T]{build: build}
}

// Get constructs the value on first use and returns the memoized result.
// A panicking constructor is memoized as a *PanicError and the panic is
// re-raised to the first caller; later calls get the error.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		defer l.built.Store(true)
		if l.build == nil {
			l.err = ErrNoFactory
			return
		}
		defer func() {
			if p := recover(); p != nil {
				var zero T
				l.value = zero
				l.err = &PanicError{Value: p, Stack: debug.Stack()}
				panic(p)
			}
		}()
		l.value, l.err = l.build()
	})
	return l.value, l.err
}

// Constructed reports whether construction has been attempted.
func (l *Lazy[T]) Constructed() bool {
	return l.built.Load()
}

// Peek returns the value without triggering construction. ok is false
// when the value was never built or construction failed.
func (l *Lazy[T]) Peek() (value T, ok bool) {
	if !l.built.Load() {
		return value, false
	}
	if l.err != nil {
		return value, false
	}
	return l.value, true
}
