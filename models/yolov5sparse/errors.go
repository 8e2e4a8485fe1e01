package yolov5sparse

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrInvalidConfig reports a configuration rejected before any engine is touched.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrModelLoad reports a model path or engine setup that could not be loaded.
	ErrModelLoad = errors.New("model load failed")
	// ErrInference reports an engine failure or a malformed engine output.
	ErrInference = errors.New("inference failed")
	// ErrFormat reports a category index or remap key the configuration does not cover.
	ErrFormat = errors.New("category format mismatch")
	// ErrState reports an operation called out of order.
	ErrState = errors.New("invalid state")
)

// Error pairs an error kind with what the adapter was doing and the underlying cause.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Msg describes the failed operation.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Msg, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind, cause error, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause})
}

// IsConfigError reports whether err calls for fixing the setup.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrModelLoad)
}

// IsDataError reports whether err calls for fixing the input or the model.
func IsDataError(err error) bool {
	return errors.Is(err, ErrInference) || errors.Is(err, ErrFormat)
}

// IsOrderingError reports whether err calls for fixing the call sequence.
func IsOrderingError(err error) bool {
	return errors.Is(err, ErrState)
}
