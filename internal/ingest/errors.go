package ingest

import (
	"errors"
	"fmt"
)

// ErrUnrecognisedCode means a row carried a type code with no mapping. It
// signals upstream schema drift and aborts the run.
var ErrUnrecognisedCode = errors.New("unrecognised code")

// ErrIngestionInProgress is returned when another run holds the lock.
var ErrIngestionInProgress = errors.New("ingestion already in progress")

// RowError locates a fatal problem in a source file.
type RowError struct {
	Source string
	Line   int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Source, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func unrecognised(source string, line int, what, value string) error {
	return &RowError{
		Source: source,
		Line:   line,
		Err:    fmt.Errorf("%w: %s %q", ErrUnrecognisedCode, what, value),
	}
}
