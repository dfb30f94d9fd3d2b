package models

// TimeSlotStatus is the lifecycle state of a time slot.
type TimeSlotStatus string

const (
	TimeSlotOpen     TimeSlotStatus = "open"
	TimeSlotMatching TimeSlotStatus = "matching"
	TimeSlotGrouped  TimeSlotStatus = "grouped"
	TimeSlotClosed   TimeSlotStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TimeSlotStatus) Valid() bool {
	switch s {
	case TimeSlotOpen, TimeSlotMatching, TimeSlotGrouped, TimeSlotClosed:
		return true
	}
	return false
}

// TimeSlot is a bookable dinner occasion.
type TimeSlot struct {
	// ID is the unique identifier for the slot (UUID format).
	ID string

	// Date is the dinner date (YYYY-MM-DD).
	Date string

	// Time is the dinner time (HH:MM, 24h).
	Time string

	// DinnerType is the stored dinner-type name ("singles" or "regular").
	// It is kept as text and parsed by the matcher, so rows written by
	// other tools with unknown types are rejected at match time.
	DinnerType string

	// Status is the slot lifecycle state.
	Status TimeSlotStatus

	// CreatedAt is the Unix timestamp when the slot was created.
	CreatedAt int64

	// StatusChangedAt is the Unix timestamp of the last status change.
	StatusChangedAt int64
}
