// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// pragmas are applied to every pooled connection through the DSN.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?" + pragmas
	if strings.Contains(dbPath, "?") {
		dsn = dbPath + "&" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(8)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const timeSlotColumns = "id, date, time, dinner_type, status, created_at, status_changed_at"

func scanTimeSlot(row rowScanner) (*models.TimeSlot, error) {
	slot := &models.TimeSlot{}
	err := row.Scan(&slot.ID, &slot.Date, &slot.Time, &slot.DinnerType, &slot.Status, &slot.CreatedAt, &slot.StatusChangedAt)
	return slot, err
}

// CreateTimeSlot persists a new time slot.
func (s *SQLiteStore) CreateTimeSlot(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	if slot.Status == "" {
		slot.Status = models.TimeSlotOpen
	}
	if slot.CreatedAt == 0 {
		slot.CreatedAt = time.Now().Unix()
	}
	slot.StatusChangedAt = slot.CreatedAt

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO time_slots ("+timeSlotColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		slot.ID, slot.Date, slot.Time, slot.DinnerType, slot.Status, slot.CreatedAt, slot.StatusChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert time slot: %w", err)
	}
	return nil
}

// GetTimeSlot retrieves a time slot by ID.
func (s *SQLiteStore) GetTimeSlot(ctx context.Context, slotID string) (*models.TimeSlot, error) {
	slot, err := scanTimeSlot(s.db.QueryRowContext(ctx,
		"SELECT "+timeSlotColumns+" FROM time_slots WHERE id = ?",
		slotID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("time slot %s: %w", slotID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time slot: %w", err)
	}
	return slot, nil
}

// ListTimeSlots lists time slots, optionally filtered by status.
func (s *SQLiteStore) ListTimeSlots(ctx context.Context, status models.TimeSlotStatus) ([]*models.TimeSlot, error) {
	query := "SELECT " + timeSlotColumns + " FROM time_slots"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY date, time, created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.TimeSlot
	for rows.Next() {
		slot, err := scanTimeSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time slots: %w", err)
	}
	return slots, nil
}

// ClaimTimeSlot performs a conditional status transition.
func (s *SQLiteStore) ClaimTimeSlot(ctx context.Context, slotID string, from, to models.TimeSlotStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE time_slots SET status = ?, status_changed_at = ? WHERE id = ? AND status = ?",
		to, time.Now().Unix(), slotID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update time slot status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	slot, err := s.GetTimeSlot(ctx, slotID)
	if err != nil {
		return err
	}
	return fmt.Errorf("time slot %s is %s, not %s: %w", slotID, slot.Status, from, storage.ErrConflict)
}

// ResetStaleTimeSlots moves slots stuck in from since before the cutoff.
func (s *SQLiteStore) ResetStaleTimeSlots(ctx context.Context, from, to models.TimeSlotStatus, before int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"UPDATE time_slots SET status = ?, status_changed_at = ? WHERE status = ? AND status_changed_at < ? RETURNING id",
		to, time.Now().Unix(), from, before,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reset time slots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan time slot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reset time slots: %w", err)
	}
	return ids, nil
}

// nullable maps empty strings to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
