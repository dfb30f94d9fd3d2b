// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/sharedtable/fare/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional update finds the record in
	// an unexpected state, e.g. claiming a slot that is no longer open or
	// grouping a signup that is no longer pending.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists is returned when a record would duplicate a live one,
	// e.g. a second signup by the same user for the same slot.
	ErrAlreadyExists = errors.New("already exists")
)

// TimeSlotStore persists time slots.
type TimeSlotStore interface {
	// CreateTimeSlot persists a new slot. ID, Status and CreatedAt are
	// filled in when empty.
	CreateTimeSlot(ctx context.Context, slot *models.TimeSlot) error

	// GetTimeSlot retrieves a slot by ID. Returns ErrNotFound if missing.
	GetTimeSlot(ctx context.Context, slotID string) (*models.TimeSlot, error)

	// ListTimeSlots returns slots ordered by date and time. An empty status
	// lists every slot.
	ListTimeSlots(ctx context.Context, status models.TimeSlotStatus) ([]*models.TimeSlot, error)

	// ClaimTimeSlot moves a slot from one status to another only if it is
	// currently in from. Returns ErrConflict when it is not, ErrNotFound when
	// the slot does not exist.
	ClaimTimeSlot(ctx context.Context, slotID string, from, to models.TimeSlotStatus) error

	// ResetStaleTimeSlots moves every slot that entered from before the given
	// Unix time to to, and returns the IDs it moved.
	ResetStaleTimeSlots(ctx context.Context, from, to models.TimeSlotStatus, before int64) ([]string, error)
}

// SignupStore persists signups.
type SignupStore interface {
	// CreateSignup persists a new pending signup. ID, Status and SignedUpAt
	// are filled in when empty. The insert only happens while the slot is
	// open: ErrNotFound if the slot is missing, ErrConflict if it is not
	// open, ErrAlreadyExists if the user already holds a pending or grouped
	// signup for it.
	CreateSignup(ctx context.Context, signup *models.Signup) error

	// GetSignup retrieves a signup by ID. Returns ErrNotFound if missing.
	GetSignup(ctx context.Context, signupID string) (*models.Signup, error)

	// ListPendingSignups returns the pending signups of a slot in signup order.
	ListPendingSignups(ctx context.Context, slotID string) ([]*models.Signup, error)

	// CancelSignup marks a pending signup cancelled. Returns ErrConflict if it
	// is no longer pending.
	CancelSignup(ctx context.Context, signupID string) error
}

// GroupStore persists dinner groups.
type GroupStore interface {
	// CreateDinnerGroup persists a group, its members, and moves every
	// member's signup from pending to grouped in one transaction. If any
	// signup is no longer pending nothing is written and ErrConflict is
	// returned.
	CreateDinnerGroup(ctx context.Context, group *models.DinnerGroup) error

	// ListDinnerGroups returns the groups of a slot with their members.
	ListDinnerGroups(ctx context.Context, slotID string) ([]*models.DinnerGroup, error)
}

// RestaurantStore persists the venue list.
type RestaurantStore interface {
	CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error

	// ListActiveRestaurants returns active restaurants in creation order.
	ListActiveRestaurants(ctx context.Context) ([]*models.Restaurant, error)

	// SeedRestaurants inserts the given restaurants only if the table is
	// empty. Returns the number inserted.
	SeedRestaurants(ctx context.Context, restaurants []*models.Restaurant) (int, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound if no account uses the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound if the account does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store defines the full storage interface.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	TimeSlotStore
	SignupStore
	GroupStore
	RestaurantStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
