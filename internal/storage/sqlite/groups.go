package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/storage"
)

// CreateDinnerGroup persists a group with its members and marks the member
// signups grouped, all in one transaction.
func (s *SQLiteStore) CreateDinnerGroup(ctx context.Context, group *models.DinnerGroup) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.Status == "" {
		group.Status = models.DinnerGroupFormed
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	group.GroupSize = len(group.Members)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert group
	_, err = tx.ExecContext(ctx,
		`INSERT INTO dinner_groups (id, time_slot_id, restaurant_name, restaurant_address,
		 reservation_date, reservation_time, group_size, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.TimeSlotID, nullable(group.RestaurantName), nullable(group.RestaurantAddress),
		group.ReservationDate, group.ReservationTime, group.GroupSize, group.Status, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dinner group: %w", err)
	}

	// Move each signup forward, then record the membership
	for i := range group.Members {
		member := &group.Members[i]
		if member.ID == "" {
			member.ID = uuid.New().String()
		}
		if member.Status == "" {
			member.Status = models.MemberAssigned
		}
		member.GroupID = group.ID

		res, err := tx.ExecContext(ctx,
			"UPDATE signups SET status = ? WHERE id = ? AND time_slot_id = ? AND status = ?",
			models.SignupGrouped, member.SignupID, group.TimeSlotID, models.SignupPending,
		)
		if err != nil {
			return fmt.Errorf("failed to update signup status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("signup %s is not pending in slot %s: %w", member.SignupID, group.TimeSlotID, storage.ErrConflict)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (id, group_id, signup_id, user_id, status, position) VALUES (?, ?, ?, ?, ?, ?)",
			member.ID, member.GroupID, member.SignupID, member.UserID, member.Status, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListDinnerGroups returns every group of a slot, including members.
func (s *SQLiteStore) ListDinnerGroups(ctx context.Context, slotID string) ([]*models.DinnerGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, time_slot_id, COALESCE(restaurant_name, ''), COALESCE(restaurant_address, ''),
		 reservation_date, reservation_time, group_size, status, created_at
		 FROM dinner_groups WHERE time_slot_id = ? ORDER BY created_at, rowid`,
		slotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dinner groups: %w", err)
	}

	var groups []*models.DinnerGroup
	byID := make(map[string]*models.DinnerGroup)
	for rows.Next() {
		g := &models.DinnerGroup{}
		if err := rows.Scan(&g.ID, &g.TimeSlotID, &g.RestaurantName, &g.RestaurantAddress,
			&g.ReservationDate, &g.ReservationTime, &g.GroupSize, &g.Status, &g.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan dinner group: %w", err)
		}
		groups = append(groups, g)
		byID[g.ID] = g
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dinner groups: %w", err)
	}
	if len(groups) == 0 {
		return groups, nil
	}

	memberRows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.group_id, m.signup_id, m.user_id, m.status
		 FROM group_members m JOIN dinner_groups g ON g.id = m.group_id
		 WHERE g.time_slot_id = ? ORDER BY m.group_id, m.position`,
		slotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var m models.GroupMember
		if err := memberRows.Scan(&m.ID, &m.GroupID, &m.SignupID, &m.UserID, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		if g, ok := byID[m.GroupID]; ok {
			g.Members = append(g.Members, m)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return groups, nil
}
