package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/storage"
)

const signupColumns = "id, time_slot_id, user_id, status, dietary_restriction, preference, signed_up_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignup(row rowScanner) (*models.Signup, error) {
	signup := &models.Signup{}
	var dietary, preference sql.NullString
	if err := row.Scan(
		&signup.ID,
		&signup.TimeSlotID,
		&signup.UserID,
		&signup.Status,
		&dietary,
		&preference,
		&signup.SignedUpAt,
	); err != nil {
		return nil, err
	}
	signup.DietaryRestriction = dietary.String
	signup.Preference = preference.String
	return signup, nil
}

// CreateSignup persists a new signup if its slot is open and the user has
// no live signup for it yet.
func (s *SQLiteStore) CreateSignup(ctx context.Context, signup *models.Signup) error {
	if signup.ID == "" {
		signup.ID = uuid.New().String()
	}
	if signup.Status == "" {
		signup.Status = models.SignupPending
	}
	if signup.SignedUpAt == 0 {
		signup.SignedUpAt = time.Now().UnixNano()
	}

	// The slot check and the insert are one statement so a signup cannot
	// land in a slot that a matching run has already claimed.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO signups (id, time_slot_id, user_id, status, dietary_restriction, preference, signed_up_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM time_slots WHERE id = ? AND status = ?)
		 AND NOT EXISTS (SELECT 1 FROM signups WHERE time_slot_id = ? AND user_id = ? AND status != ?)`,
		signup.ID, signup.TimeSlotID, signup.UserID, signup.Status,
		nullable(signup.DietaryRestriction), nullable(signup.Preference), signup.SignedUpAt,
		signup.TimeSlotID, models.TimeSlotOpen,
		signup.TimeSlotID, signup.UserID, models.SignupCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signup: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	slot, err := s.GetTimeSlot(ctx, signup.TimeSlotID)
	if err != nil {
		return err
	}
	if slot.Status != models.TimeSlotOpen {
		return fmt.Errorf("time slot %s is %s: %w", slot.ID, slot.Status, storage.ErrConflict)
	}
	return fmt.Errorf("user %s already signed up for slot %s: %w", signup.UserID, slot.ID, storage.ErrAlreadyExists)
}

// GetSignup retrieves a signup by ID.
func (s *SQLiteStore) GetSignup(ctx context.Context, signupID string) (*models.Signup, error) {
	signup, err := scanSignup(s.db.QueryRowContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE id = ?",
		signupID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("signup %s: %w", signupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signup: %w", err)
	}
	return signup, nil
}

// ListPendingSignups returns pending signups for a slot, oldest first.
// Ties on signed_up_at fall back to insertion order.
func (s *SQLiteStore) ListPendingSignups(ctx context.Context, slotID string) ([]*models.Signup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE time_slot_id = ? AND status = ? ORDER BY signed_up_at, seq",
		slotID, models.SignupPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending signups: %w", err)
	}
	defer rows.Close()

	var signups []*models.Signup
	for rows.Next() {
		signup, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, signup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signups: %w", err)
	}
	return signups, nil
}

// CancelSignup marks a pending signup as cancelled.
func (s *SQLiteStore) CancelSignup(ctx context.Context, signupID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE signups SET status = ? WHERE id = ? AND status = ?",
		models.SignupCancelled, signupID, models.SignupPending,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel signup: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	signup, err := s.GetSignup(ctx, signupID)
	if err != nil {
		return err
	}
	return fmt.Errorf("signup %s is %s: %w", signupID, signup.Status, storage.ErrConflict)
}
