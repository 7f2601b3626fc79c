// Package agtraceerr defines the error taxonomy shared by every agtrace
// component: a small closed set of kinds, each with a documented
// propagation policy, instead of ad hoc sentinel errors per package.
package agtraceerr

import "fmt"

// Kind classifies an error for the purposes of caller-side handling.
type Kind int

const (
	// Internal is an unexpected invariant violation. Always a bug.
	Internal Kind = iota
	// InputDecode is malformed JSON/JSONL from a vendor log file.
	// Policy: warn and skip the offending record, continue the file.
	InputDecode
	// FileUnreadable is an OS-level I/O failure opening or reading a file.
	// Policy: warn and skip the file, continue the scan/tail.
	FileUnreadable
	// SchemaMismatch is well-formed JSON that doesn't match any known
	// vendor shape. Policy: warn and skip the record.
	SchemaMismatch
	// IndexWrite is a failure writing to the pointer index.
	// Policy: abort the current operation, nonzero exit.
	IndexWrite
	// NotFound is a missing session, file, or project lookup.
	// Policy: structured error returned to the caller.
	NotFound
	// InvalidInput is a caller-supplied argument that fails validation.
	// Policy: structured error returned to the caller.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case InputDecode:
		return "input_decode"
	case FileUnreadable:
		return "file_unreadable"
	case SchemaMismatch:
		return "schema_mismatch"
	case IndexWrite:
		return "index_write"
	case NotFound:
		return "not_found"
	case InvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is the concrete error type returned by agtrace packages.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with the given kind, operation label, and cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
