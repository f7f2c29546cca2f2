package bootstrap

import (
	"errors"
	"fmt"
)

var (
	// ErrFatal wraps the failure of a mandatory wiring step. The fatal
	// handler receives it and the lifecycle signal is never set.
	ErrFatal = errors.New("fatal startup failure")

	// ErrAlreadyWired is returned when Wiring.Run is called a second time.
	ErrAlreadyWired = errors.New("subsystems already wired")
)

// stepError records which step failed.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string {
	return fmt.Sprintf("%s: %v", e.step, e.err)
}

func (e *stepError) Unwrap() error {
	return e.err
}

func fatal(step string, err error) error {
	return fmt.Errorf("%w: %w", ErrFatal, &stepError{step: step, err: err})
}

// FailedStep returns the name of the wiring step that produced err, if any.
func FailedStep(err error) (string, bool) {
	var se *stepError
	if errors.As(err, &se) {
		return se.step, true
	}
	return "", false
}

// panicError is a recovered panic turned into an error.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
