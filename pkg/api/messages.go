package api

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
}

type TimeSlot struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	DinnerType string `json:"dinner_type"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
}

type Signup struct {
	ID                 string `json:"id"`
	TimeSlotID         string `json:"time_slot_id"`
	UserID             string `json:"user_id"`
	Status             string `json:"status"`
	DietaryRestriction string `json:"dietary_restriction,omitempty"`
	Preference         string `json:"preference,omitempty"`
	SignedUpAt         int64  `json:"signed_up_at"`
}

type GroupMember struct {
	SignupID string `json:"signup_id"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
}

type DinnerGroup struct {
	ID                string        `json:"id"`
	TimeSlotID        string        `json:"time_slot_id"`
	RestaurantName    string        `json:"restaurant_name,omitempty"`
	RestaurantAddress string        `json:"restaurant_address,omitempty"`
	ReservationDate   string        `json:"reservation_date"`
	ReservationTime   string        `json:"reservation_time"`
	GroupSize         int           `json:"group_size"`
	Status            string        `json:"status"`
	Members           []GroupMember `json:"members"`
	CreatedAt         int64         `json:"created_at"`
}

// Policy is one row of the group-size policy table.
type Policy struct {
	DinnerType  string `json:"dinner_type"`
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Ideal       int    `json:"ideal"`
	Description string `json:"description,omitempty"`
}

// PlannedGroup is a group a matching run would form.
type PlannedGroup struct {
	RestaurantName    string   `json:"restaurant_name,omitempty"`
	RestaurantAddress string   `json:"restaurant_address,omitempty"`
	SignupIDs         []string `json:"signup_ids"`
}

// MatchPlan is the dry-run result of matching a slot.
type MatchPlan struct {
	TimeSlotID         string         `json:"time_slot_id"`
	DinnerType         string         `json:"dinner_type"`
	Policy             Policy         `json:"policy"`
	Groups             []PlannedGroup `json:"groups"`
	RemainderSignupIDs []string       `json:"remainder_signup_ids"`
}

// MatchReport is the result of a matching run.
type MatchReport struct {
	TimeSlotID         string        `json:"time_slot_id"`
	DinnerType         string        `json:"dinner_type"`
	Groups             []DinnerGroup `json:"groups"`
	RemainderSignupIDs []string      `json:"remainder_signup_ids"`
	FailedGroups       int           `json:"failed_groups"`
	SlotStatus         string        `json:"slot_status"`
}

// Auth

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Slots

type CreateTimeSlotRequest struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	DinnerType string `json:"dinner_type"`
}

type CreateTimeSlotResponse struct {
	TimeSlot TimeSlot `json:"time_slot"`
}

// ListTimeSlotsRequest filters by status; empty lists every slot.
type ListTimeSlotsRequest struct {
	Status string `json:"status,omitempty"`
}

type ListTimeSlotsResponse struct {
	TimeSlots []TimeSlot `json:"time_slots"`
}

type CreateSignupRequest struct {
	TimeSlotID         string `json:"time_slot_id"`
	DietaryRestriction string `json:"dietary_restriction,omitempty"`
	Preference         string `json:"preference,omitempty"`
}

type CreateSignupResponse struct {
	Signup Signup `json:"signup"`
}

type CancelSignupRequest struct {
	SignupID string `json:"signup_id"`
}

type CancelSignupResponse struct {
	Signup Signup `json:"signup"`
}

type ListGroupsRequest struct {
	TimeSlotID string `json:"time_slot_id"`
}

type ListGroupsResponse struct {
	Groups []DinnerGroup `json:"groups"`
}

// Matching

type PreviewMatchingRequest struct {
	TimeSlotID string `json:"time_slot_id"`
}

type PreviewMatchingResponse struct {
	Plan MatchPlan `json:"plan"`
}

type RunMatchingRequest struct {
	TimeSlotID string `json:"time_slot_id"`
}

type RunMatchingResponse struct {
	Report MatchReport `json:"report"`
}

type RunOpenSlotsRequest struct{}

type RunOpenSlotsResponse struct {
	Reports []MatchReport `json:"reports"`
	// Errors lists slots that failed; the other reports are still valid.
	Errors []string `json:"errors,omitempty"`
}

type ListPoliciesRequest struct{}

type ListPoliciesResponse struct {
	Policies []Policy `json:"policies"`
}
