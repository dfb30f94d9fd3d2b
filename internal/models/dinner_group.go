package models

// DinnerGroupStatus is the lifecycle state of a dinner group.
type DinnerGroupStatus string

const (
	DinnerGroupFormed DinnerGroupStatus = "formed"
)

// MemberStatus is the state of one member within a group.
type MemberStatus string

const (
	MemberAssigned MemberStatus = "assigned"
)

// DinnerGroup is a set of signups seated together for one time slot.
type DinnerGroup struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// TimeSlotID is the slot this group dines at.
	TimeSlotID string

	// RestaurantName and RestaurantAddress describe the assigned venue.
	// Both are empty when no restaurants are configured.
	RestaurantName    string
	RestaurantAddress string

	// ReservationDate and ReservationTime are copied from the time slot.
	ReservationDate string
	ReservationTime string

	// GroupSize is the number of members.
	GroupSize int

	// Status is the group lifecycle state.
	Status DinnerGroupStatus

	// Members are the signups placed in this group, in signup order.
	Members []GroupMember

	// CreatedAt is the Unix timestamp when the group was persisted.
	CreatedAt int64
}

// GroupMember links a dinner group to one signup and its user.
type GroupMember struct {
	ID       string
	GroupID  string
	SignupID string
	UserID   string
	Status   MemberStatus
}

// SignupIDs returns the signup IDs of the group's members in order.
func (g *DinnerGroup) SignupIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.SignupID
	}
	return ids
}

// UserIDs returns the user IDs of the group's members in order.
func (g *DinnerGroup) UserIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.UserID
	}
	return ids
}
