// Package fault classifies pipeline errors into the three classes the
// acquisition and processing loops act on.
//
// A ConfigError is detected before any loop starts and aborts startup.
// A TransientError is logged and the failing step is retried.
// A FatalError stops the pipeline and the process exits non-zero.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationRejected matches every ConfigError
	ErrConfigurationRejected = errors.New("configuration rejected")

	// ErrTransient matches every TransientError
	ErrTransient = errors.New("transient acquisition failure")

	// ErrFatal matches every FatalError
	ErrFatal = errors.New("fatal pipeline failure")
)

// ConfigError is an invalid hardware parameter, channel selection or filter
// geometry found while building the configuration
type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigurationRejected
}

// TransientError wraps a single failed burst read
type TransientError struct {
	err error
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{err}
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// FatalError wraps a failure nothing can recover from: the hand-off receiver
// is gone, a sink cannot be written or a transform cannot be built
type FatalError struct {
	err error
}

func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{err}
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}

// IsTransient reports whether err, or anything it wraps, is transient and
// not also marked fatal
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) && !errors.Is(err, ErrFatal)
}
