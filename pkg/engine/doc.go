// Package engine holds the rendering engine implementations and the
// errors they share.
//
//   - headless: in-process engine with no renderer, used by default and in tests
//   - chromium: a Chromium instance driven over the DevTools protocol
package engine

import "errors"

// ErrNotWarm is returned when an engine is used before WarmUp succeeded.
var ErrNotWarm = errors.New("engine not warmed up")

// ErrSessionClosed is returned when operating on a closed engine session.
var ErrSessionClosed = errors.New("engine session closed")
