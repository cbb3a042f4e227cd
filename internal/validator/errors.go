package validator

import "fmt"

// ValidationError marks a contact as confirmed bad for a known reason.
// Anything else that goes wrong during validation is an infrastructure
// or programming problem and routes the contact to FLAGGED instead.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
