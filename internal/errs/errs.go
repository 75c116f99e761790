// Package errs defines the error taxonomy shared by the pipeline: inputs that
// do not exist, documents that fail schema validation, and everything else
// that aborts a run. Skippable conditions (unmatched source keys, unmet
// target conditions) are logged, not errors.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrSchemaInvalid = errors.New("schema invalid")
	ErrProcessing    = errors.New("processing error")
)

// NotFoundError reports a missing input file or directory.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// SchemaError reports a structural violation of a document against its
// schema. Pointer is a JSON pointer into the offending document.
type SchemaError struct {
	DocPath    string
	SchemaPath string
	Pointer    string
	Message    string
}

func (e *SchemaError) Error() string {
	ptr := e.Pointer
	if ptr == "" {
		ptr = "<root>"
	}
	return fmt.Sprintf("schema validation failed for %s against %s at %s: %s", e.DocPath, e.SchemaPath, ptr, e.Message)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaInvalid }

// ProcessingError wraps any other failure that aborts a run, such as a
// required role missing from the functional layer.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func (e *ProcessingError) Is(target error) bool { return target == ErrProcessing }

// Processingf builds a ProcessingError from a format string.
func Processingf(format string, args ...any) *ProcessingError {
	return &ProcessingError{Op: fmt.Sprintf(format, args...)}
}
