package partition

import "fmt"

// UnknownDinnerTypeError is returned when a dinner-type has no registered
// policy or cannot be parsed. It is fatal to the invocation.
type UnknownDinnerTypeError struct {
	DinnerType string
}

func (e *UnknownDinnerTypeError) Error() string {
	return fmt.Sprintf("unknown dinner type %q", e.DinnerType)
}

// InvalidPolicyError is returned when a policy table fails validation.
// It is fatal at startup.
type InvalidPolicyError struct {
	DinnerType string
	Reason     string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid group size policy for %q: %s", e.DinnerType, e.Reason)
}
