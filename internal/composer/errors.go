package composer

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a closed composer is asked to wait or export
var ErrClosed = errors.New("composer is closed")

// DecodeError reports background bytes that could not be decoded. The
// composer falls back to the gradient and keeps working.
type DecodeError struct {
	Token uint64
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("background %d: %v", e.Token, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ExportFailure reports an artifact that could not be produced or that the
// sink refused. The composition is left as it was.
type ExportFailure struct {
	Filename string
	Err      error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export %s failed: %v", e.Filename, e.Err)
}

func (e *ExportFailure) Unwrap() error {
	return e.Err
}
