// Package validation checks generated diagram source with an external compiler.
package validation

import "fmt"

// UnavailableError means the compiler could not be invoked at all or did not
// finish in time. It is distinct from a rejection Verdict.
type UnavailableError struct {
	Message string
	Cause   error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validator unavailable: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validator unavailable: %s", e.Message)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}
