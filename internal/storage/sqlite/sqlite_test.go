package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createSlot(t *testing.T, store *SQLiteStore, dinnerType string) *models.TimeSlot {
	t.Helper()

	slot := &models.TimeSlot{Date: "2026-11-06", Time: "19:00", DinnerType: dinnerType}
	if err := store.CreateTimeSlot(context.Background(), slot); err != nil {
		t.Fatalf("CreateTimeSlot failed: %v", err)
	}
	return slot
}

func createSignups(t *testing.T, store *SQLiteStore, slotID string, n int) []*models.Signup {
	t.Helper()

	signups := make([]*models.Signup, n)
	for i := range signups {
		signups[i] = &models.Signup{
			TimeSlotID: slotID,
			UserID:     "user-" + string(rune('a'+i)),
			SignedUpAt: int64(1000 + i),
		}
		if err := store.CreateSignup(context.Background(), signups[i]); err != nil {
			t.Fatalf("CreateSignup failed: %v", err)
		}
	}
	return signups
}

func TestTimeSlots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateTimeSlot fills defaults", func(t *testing.T) {
		slot := createSlot(t, store, "regular")

		if slot.ID == "" {
			t.Error("Expected slot ID to be generated")
		}
		if slot.Status != models.TimeSlotOpen {
			t.Errorf("Status = %s, want open", slot.Status)
		}
		if slot.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetTimeSlot(ctx, slot.ID)
		if err != nil {
			t.Fatalf("GetTimeSlot failed: %v", err)
		}
		if got.DinnerType != "regular" || got.Date != slot.Date || got.Time != slot.Time {
			t.Errorf("GetTimeSlot = %+v, want %+v", got, slot)
		}
	})

	t.Run("GetTimeSlot returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetTimeSlot(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ClaimTimeSlot is conditional", func(t *testing.T) {
		slot := createSlot(t, store, "singles")

		if err := store.ClaimTimeSlot(ctx, slot.ID, models.TimeSlotOpen, models.TimeSlotMatching); err != nil {
			t.Fatalf("first claim failed: %v", err)
		}

		err := store.ClaimTimeSlot(ctx, slot.ID, models.TimeSlotOpen, models.TimeSlotMatching)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("second claim: expected ErrConflict, got %v", err)
		}

		err = store.ClaimTimeSlot(ctx, "nonexistent-id", models.TimeSlotOpen, models.TimeSlotMatching)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing slot: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListTimeSlots filters by status", func(t *testing.T) {
		open, err := store.ListTimeSlots(ctx, models.TimeSlotOpen)
		if err != nil {
			t.Fatalf("ListTimeSlots failed: %v", err)
		}
		for _, s := range open {
			if s.Status != models.TimeSlotOpen {
				t.Errorf("slot %s has status %s", s.ID, s.Status)
			}
		}

		all, err := store.ListTimeSlots(ctx, "")
		if err != nil {
			t.Fatalf("ListTimeSlots failed: %v", err)
		}
		if len(all) <= len(open) {
			t.Errorf("expected more slots unfiltered (%d) than open (%d)", len(all), len(open))
		}
	})

	t.Run("ResetStaleTimeSlots only moves old claims", func(t *testing.T) {
		stuck := createSlot(t, store, "regular")
		if err := store.ClaimTimeSlot(ctx, stuck.ID, models.TimeSlotOpen, models.TimeSlotMatching); err != nil {
			t.Fatalf("claim failed: %v", err)
		}

		ids, err := store.ResetStaleTimeSlots(ctx, models.TimeSlotMatching, models.TimeSlotOpen, time.Now().Add(-time.Hour).Unix())
		if err != nil {
			t.Fatalf("ResetStaleTimeSlots failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("reset %v, want none", ids)
		}

		ids, err = store.ResetStaleTimeSlots(ctx, models.TimeSlotMatching, models.TimeSlotOpen, time.Now().Add(time.Hour).Unix())
		if err != nil {
			t.Fatalf("ResetStaleTimeSlots failed: %v", err)
		}
		if !slices.Contains(ids, stuck.ID) {
			t.Errorf("reset %v, want %s included", ids, stuck.ID)
		}

		got, err := store.GetTimeSlot(ctx, stuck.ID)
		if err != nil {
			t.Fatalf("GetTimeSlot failed: %v", err)
		}
		if got.Status != models.TimeSlotOpen {
			t.Errorf("Status = %s, want open", got.Status)
		}
	})
}

func TestSignups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	slot := createSlot(t, store, "regular")

	t.Run("ListPendingSignups keeps signup order", func(t *testing.T) {
		late := &models.Signup{TimeSlotID: slot.ID, UserID: "late", SignedUpAt: 3000}
		early := &models.Signup{TimeSlotID: slot.ID, UserID: "early", SignedUpAt: 1000, DietaryRestriction: "vegan"}
		tie := &models.Signup{TimeSlotID: slot.ID, UserID: "tie", SignedUpAt: 3000}
		for _, s := range []*models.Signup{late, early, tie} {
			if err := store.CreateSignup(ctx, s); err != nil {
				t.Fatalf("CreateSignup failed: %v", err)
			}
		}

		pending, err := store.ListPendingSignups(ctx, slot.ID)
		if err != nil {
			t.Fatalf("ListPendingSignups failed: %v", err)
		}
		if len(pending) != 3 {
			t.Fatalf("Expected 3 pending, got %d", len(pending))
		}

		want := []string{"early", "late", "tie"}
		for i, s := range pending {
			if s.UserID != want[i] {
				t.Errorf("pending[%d] = %s, want %s", i, s.UserID, want[i])
			}
		}
		if pending[0].DietaryRestriction != "vegan" {
			t.Errorf("DietaryRestriction = %q, want vegan", pending[0].DietaryRestriction)
		}
	})

	t.Run("CancelSignup only cancels pending", func(t *testing.T) {
		signup := &models.Signup{TimeSlotID: slot.ID, UserID: "cancel-me"}
		if err := store.CreateSignup(ctx, signup); err != nil {
			t.Fatalf("CreateSignup failed: %v", err)
		}

		if err := store.CancelSignup(ctx, signup.ID); err != nil {
			t.Fatalf("CancelSignup failed: %v", err)
		}
		got, err := store.GetSignup(ctx, signup.ID)
		if err != nil {
			t.Fatalf("GetSignup failed: %v", err)
		}
		if got.Status != models.SignupCancelled {
			t.Errorf("Status = %s, want cancelled", got.Status)
		}

		if err := store.CancelSignup(ctx, signup.ID); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("second cancel: expected ErrConflict, got %v", err)
		}
		if err := store.CancelSignup(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing signup: expected ErrNotFound, got %v", err)
		}
	})
}

func TestCreateSignupGuards(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("slot must be open", func(t *testing.T) {
		slot := createSlot(t, store, "regular")
		if err := store.ClaimTimeSlot(ctx, slot.ID, models.TimeSlotOpen, models.TimeSlotMatching); err != nil {
			t.Fatalf("claim failed: %v", err)
		}

		err := store.CreateSignup(ctx, &models.Signup{TimeSlotID: slot.ID, UserID: "late"})
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}

		pending, err := store.ListPendingSignups(ctx, slot.ID)
		if err != nil {
			t.Fatalf("ListPendingSignups failed: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("Expected no signup to be written, got %d", len(pending))
		}

		err = store.CreateSignup(ctx, &models.Signup{TimeSlotID: "nonexistent-id", UserID: "late"})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("missing slot: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("one live signup per user", func(t *testing.T) {
		slot := createSlot(t, store, "regular")

		first := &models.Signup{TimeSlotID: slot.ID, UserID: "twice"}
		if err := store.CreateSignup(ctx, first); err != nil {
			t.Fatalf("CreateSignup failed: %v", err)
		}

		err := store.CreateSignup(ctx, &models.Signup{TimeSlotID: slot.ID, UserID: "twice"})
		if !errors.Is(err, storage.ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists, got %v", err)
		}

		// Cancelling frees the user to sign up again.
		if err := store.CancelSignup(ctx, first.ID); err != nil {
			t.Fatalf("CancelSignup failed: %v", err)
		}
		if err := store.CreateSignup(ctx, &models.Signup{TimeSlotID: slot.ID, UserID: "twice"}); err != nil {
			t.Errorf("CreateSignup after cancel failed: %v", err)
		}

		other := createSlot(t, store, "regular")
		if err := store.CreateSignup(ctx, &models.Signup{TimeSlotID: other.ID, UserID: "twice"}); err != nil {
			t.Errorf("CreateSignup in another slot failed: %v", err)
		}
	})
}

func TestDinnerGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	slot := createSlot(t, store, "regular")
	signups := createSignups(t, store, slot.ID, 6)

	members := func(ss []*models.Signup) []models.GroupMember {
		out := make([]models.GroupMember, len(ss))
		for i, s := range ss {
			out[i] = models.GroupMember{SignupID: s.ID, UserID: s.UserID}
		}
		return out
	}

	t.Run("CreateDinnerGroup groups signups", func(t *testing.T) {
		group := &models.DinnerGroup{
			TimeSlotID:      slot.ID,
			RestaurantName:  "The Hungry Fox",
			ReservationDate: slot.Date,
			ReservationTime: slot.Time,
			Members:         members(signups[:4]),
		}
		if err := store.CreateDinnerGroup(ctx, group); err != nil {
			t.Fatalf("CreateDinnerGroup failed: %v", err)
		}

		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.GroupSize != 4 {
			t.Errorf("GroupSize = %d, want 4", group.GroupSize)
		}

		pending, err := store.ListPendingSignups(ctx, slot.ID)
		if err != nil {
			t.Fatalf("ListPendingSignups failed: %v", err)
		}
		if len(pending) != 2 {
			t.Errorf("Expected 2 pending signups left, got %d", len(pending))
		}
	})

	t.Run("CreateDinnerGroup rolls back on non-pending signup", func(t *testing.T) {
		// signups[3] is already grouped; signups[4] must stay pending.
		group := &models.DinnerGroup{
			TimeSlotID:      slot.ID,
			ReservationDate: slot.Date,
			ReservationTime: slot.Time,
			Members:         members(signups[4:6]),
		}
		group.Members = append(group.Members, members(signups[3:4])...)

		err := store.CreateDinnerGroup(ctx, group)
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("Expected ErrConflict, got %v", err)
		}

		pending, err := store.ListPendingSignups(ctx, slot.ID)
		if err != nil {
			t.Fatalf("ListPendingSignups failed: %v", err)
		}
		if len(pending) != 2 {
			t.Errorf("Expected rollback to keep 2 pending signups, got %d", len(pending))
		}
	})

	t.Run("ListDinnerGroups returns members in order", func(t *testing.T) {
		groups, err := store.ListDinnerGroups(ctx, slot.ID)
		if err != nil {
			t.Fatalf("ListDinnerGroups failed: %v", err)
		}
		if len(groups) != 1 {
			t.Fatalf("Expected 1 group, got %d", len(groups))
		}

		g := groups[0]
		if g.RestaurantName != "The Hungry Fox" {
			t.Errorf("RestaurantName = %q", g.RestaurantName)
		}
		if len(g.Members) != 4 {
			t.Fatalf("Expected 4 members, got %d", len(g.Members))
		}
		for i, m := range g.Members {
			if m.SignupID != signups[i].ID {
				t.Errorf("member %d = %s, want %s", i, m.SignupID, signups[i].ID)
			}
			if m.Status != models.MemberAssigned {
				t.Errorf("member %d status = %s", i, m.Status)
			}
		}
	})
}

func TestRestaurants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []*models.Restaurant{
		{Name: "Osteria Uno", Address: "1 Main St"},
		{Name: "Taqueria Dos", Address: "2 Main St", Cuisine: "Mexican"},
	}

	n, err := store.SeedRestaurants(ctx, seed)
	if err != nil {
		t.Fatalf("SeedRestaurants failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 seeded, got %d", n)
	}

	n, err = store.SeedRestaurants(ctx, seed)
	if err != nil {
		t.Fatalf("second SeedRestaurants failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no reseeding, got %d", n)
	}

	if err := store.CreateRestaurant(ctx, &models.Restaurant{Name: "Trattoria Tre", Address: "3 Main St"}); err != nil {
		t.Fatalf("CreateRestaurant failed: %v", err)
	}

	restaurants, err := store.ListActiveRestaurants(ctx)
	if err != nil {
		t.Fatalf("ListActiveRestaurants failed: %v", err)
	}
	want := []string{"Osteria Uno", "Taqueria Dos", "Trattoria Tre"}
	if len(restaurants) != len(want) {
		t.Fatalf("Expected %d restaurants, got %d", len(want), len(restaurants))
	}
	for i, r := range restaurants {
		if r.Name != want[i] {
			t.Errorf("restaurant %d = %s, want %s", i, r.Name, want[i])
		}
		if !r.Active {
			t.Errorf("restaurant %s not active", r.Name)
		}
	}
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("Ada@Example.com", "Ada", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := store.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != user.ID || got.Role != models.RoleDiner {
		t.Errorf("GetUserByEmail = %+v", got)
	}

	if _, err := store.GetUserByID(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.CreateUser(ctx, models.NewUser("ada@example.com", "Ada 2", "hash")); err == nil {
		t.Error("Expected duplicate email to fail")
	}
}
