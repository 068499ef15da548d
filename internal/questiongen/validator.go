package questiongen

import "fmt"

// Validator checks a drafted question.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator, e.g. "structural".
	Name() string

	// Validate checks the draft and returns nil if it passes. A validator
	// may repair the draft in place when the fix is unambiguous.
	Validate(d *Draft, req Request) *ValidationError
}

// ValidationError describes why a draft failed validation.
type ValidationError struct {
	Validator string // Name of the validator that failed
	Message   string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}
