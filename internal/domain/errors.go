package domain

import "fmt"

// ValidationReason classifies why a raw reading was rejected.
type ValidationReason string

const (
	// Malformed covers missing, non-numeric, or non-finite values.
	Malformed ValidationReason = "malformed"
	// OutOfRange covers finite values outside the plausibility bounds.
	OutOfRange ValidationReason = "out_of_range"
)

// ValidationError reports a rejected raw reading. It is recoverable: the
// sampling loop counts it and moves on.
type ValidationError struct {
	Reason ValidationReason
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s: %s", e.Field, e.Reason, e.Detail)
}

// TransportError reports a failed read from the reading source (timeout,
// disconnect, broken frame). The loop retries these up to its bound.
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AcquisitionError is fatal: the reading source failed more times in a row
// than the retry bound allows.
type AcquisitionError struct {
	Attempts int
	Last     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *AcquisitionError) Unwrap() error { return e.Last }

// WriteError is fatal: the log writer could not durably persist a row.
// Rows already written remain valid.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("log write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
