package tessera

import (
	"errors"
	"fmt"
)

// ErrCanceled signals cooperative early termination.  It is a normal
// outcome, reported distinctly from failure.
var ErrCanceled = errors.New("operation canceled")

// ConfigurationError is an invalid expression or parameter, rejected before
// any pyramid mutation takes place.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigError returns a ConfigurationError with a formatted reason.
func NewConfigError(format string, args ...interface{}) ConfigurationError {
	return ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns true if any error in the chain is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var e ConfigurationError
	return errors.As(err, &e)
}

// ComputeError is a failed tile computation.  The tile is not cached so the
// computation is retryable.
type ComputeError struct {
	Band  string
	Coord TileCoord
	Err   error
}

func (e ComputeError) Error() string {
	return fmt.Sprintf("compute failed for band %q, tile %s: %v", e.Band, e.Coord, e.Err)
}

func (e ComputeError) Unwrap() error {
	return e.Err
}

// IsComputeError returns true if any error in the chain is a ComputeError.
func IsComputeError(err error) bool {
	var e ComputeError
	return errors.As(err, &e)
}

// SinkError is an I/O failure opening, writing, or closing a destination.
// It is fatal to the current invocation and not retried automatically.
type SinkError struct {
	Path string
	Op   string
	Err  error
}

func (e SinkError) Error() string {
	return fmt.Sprintf("sink %s failed for %q: %v", e.Op, e.Path, e.Err)
}

func (e SinkError) Unwrap() error {
	return e.Err
}

// IsSinkError returns true if any error in the chain is a SinkError.
func IsSinkError(err error) bool {
	var e SinkError
	return errors.As(err, &e)
}
