package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedExtension    = errors.New("unsupported extension")
	ErrUnsupportedSourceFormat = errors.New("unsupported source format")
	ErrUnsupportedSourceCodec  = errors.New("unsupported source codec")
	ErrSourceValidation        = errors.New("source validation failed")
	ErrNoMediaStreams          = errors.New("no media streams")
	ErrAudioRemovalInfeasible  = errors.New("audio removal infeasible")
	ErrResizeInfeasible        = errors.New("resize infeasible")
	ErrProbe                   = errors.New("probe failed")
	ErrEncode                  = errors.New("encode failed")
	ErrNoChange                = errors.New("no change")
	ErrCancelled               = errors.New("processing cancelled")
)

// Failure is a request-terminal error. Message is stable and shown to operators verbatim.
type Failure struct {
	Kind        error
	Message     string
	Stream      int
	Diagnostics string
	Err         error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Is(target error) bool { return target == f.Kind }

func (f *Failure) Unwrap() error { return f.Err }

func Fail(kind error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...), Stream: -1}
}

func StreamFailure(kind error, stream int, format string, args ...any) *Failure {
	f := Fail(kind, format, args...)
	f.Stream = stream
	return f
}

func ToolFailure(kind error, message, diagnostics string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Stream: -1, Diagnostics: diagnostics, Err: err}
}

// Cancelled wraps a context error so callers can tell cancellation apart from failure.
func Cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
