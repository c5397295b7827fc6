// Package errs defines the error taxonomy shared across the engine:
// input faults, resource faults, invariant violations, and external
// faults. Callers branch on kind with errors.Is; the wrapped cause is
// still available via errors.Unwrap / %w.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInputFault marks a caller-supplied input that is malformed or
	// out of range (empty query, oversize K, ...).
	ErrInputFault = errors.New("input fault")

	// ErrResourceFault marks a disk or I/O failure: write, read, or a
	// missing file that should exist.
	ErrResourceFault = errors.New("resource fault")

	// ErrInvariant marks on-disk or in-memory state that violates an
	// invariant the engine relies on (unsorted postings, tf mismatch,
	// missing stats, ...).
	ErrInvariant = errors.New("invariant violation")

	// ErrExternalFault marks a failure in a collaborator the engine
	// depends on but does not own (document store returning nothing
	// for an expected doc_id, tokenizer panicking, ...).
	ErrExternalFault = errors.New("external fault")

	// ErrDeadline marks a query that returned a best-effort partial
	// result because the caller's context deadline fired mid-scoring.
	// It is informational, not a hard failure: callers that don't care
	// can treat it like success and use the partial results as-is.
	ErrDeadline = errors.New("query deadline exceeded, partial result")
)

// Input constructs an input fault.
func Input(format string, args ...any) error { return wrap(ErrInputFault, format, args) }

// Resource constructs a resource fault.
func Resource(format string, args ...any) error { return wrap(ErrResourceFault, format, args) }

// Invariant constructs an invariant violation.
func Invariant(format string, args ...any) error { return wrap(ErrInvariant, format, args) }

// External constructs an external fault.
func External(format string, args ...any) error { return wrap(ErrExternalFault, format, args) }

// Deadline constructs a deadline-exceeded marker for a partial result.
func Deadline(format string, args ...any) error { return wrap(ErrDeadline, format, args) }

func wrap(kind error, format string, args []any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *kindError) Unwrap() []error {
	if e.err != nil {
		return []error{e.kind, e.err}
	}
	return []error{e.kind}
}

// Wrap attaches cause to a new error of the given kind, preserving
// errors.Is against both kind and cause.
func Wrap(kind error, cause error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...), err: cause}
}
