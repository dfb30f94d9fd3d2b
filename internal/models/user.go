package models

import (
	"time"

	"github.com/google/uuid"
)

// Role controls what an account may do through the API.
type Role string

const (
	// RoleDiner can sign up for time slots and see their groups.
	RoleDiner Role = "diner"
	// RoleOperator can create time slots and run matching.
	RoleOperator Role = "operator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDiner || r == RoleOperator
}

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// DisplayName is shown to other group members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Role is diner for regular accounts.
	Role Role

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewUser creates a diner account with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         RoleDiner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
