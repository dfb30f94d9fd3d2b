package models

// SignupStatus is the lifecycle state of a signup.
type SignupStatus string

const (
	SignupPending   SignupStatus = "pending"
	SignupGrouped   SignupStatus = "grouped"
	SignupCancelled SignupStatus = "cancelled"
)

// Signup is a user's registration for a time slot.
type Signup struct {
	// ID is the unique identifier for the signup (UUID format).
	ID string

	// TimeSlotID is the slot the user signed up for.
	TimeSlotID string

	// UserID is the user who signed up.
	UserID string

	// Status is the signup lifecycle state.
	Status SignupStatus

	// DietaryRestriction is an optional tag (e.g. "vegetarian").
	DietaryRestriction string

	// Preference is optional free text about the dinner.
	Preference string

	// SignedUpAt is the Unix timestamp (nanoseconds) of the signup.
	// Matching order follows this field.
	SignedUpAt int64
}
