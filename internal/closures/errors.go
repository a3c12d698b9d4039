package closures

import "fmt"

// ValidationError rejects a mutation payload. Field names the offending
// wire field so administrators see exactly what to fix.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RangeError rejects a preview request before any expansion work runs.
type RangeError struct {
	Reason string
}

func (e *RangeError) Error() string {
	return e.Reason
}
