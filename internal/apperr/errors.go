// Package apperr defines the error taxonomy shared across Shelf.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound reports an operation that referenced a nonexistent
	// record id.
	ErrNotFound = errors.New("record not found")

	// ErrPersistence marks durable-substrate read/write failures.
	// These are logged and never fatal to the running session.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError carries per-field messages for a rejected form.
// The map key is the field name, the value is the first failing
// message for that field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, f := range names {
		parts[i] = f + ": " + e.Fields[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FormatError reports a malformed import payload. The whole import is
// aborted; Reason is safe to surface to the user verbatim.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}

// Formatf builds a FormatError with a formatted reason.
func Formatf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}
