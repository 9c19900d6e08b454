package judging

import "fmt"

// APICallError represents an error from the reasoning service
type APICallError struct {
	PersonaID string
	Message   string
	Cause     error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed for persona %s: %s: %v", e.PersonaID, e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed for persona %s: %s", e.PersonaID, e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a judgment response that failed schema validation
type ValidationError struct {
	PersonaID string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("judgment from persona %s rejected: %s", e.PersonaID, e.Reason)
}
