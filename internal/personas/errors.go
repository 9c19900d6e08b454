package personas

import "fmt"

// APICallError represents an error from the reasoning service
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a persona response that failed schema validation
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("persona panel rejected: %s", e.Reason)
}

// CountError indicates the model returned the wrong number of personas.
// Dropping or padding the panel would corrupt persona correlation, so a
// mismatched count fails the stage outright.
type CountError struct {
	Requested int
	Returned  int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("requested %d personas, model returned %d", e.Requested, e.Returned)
}
