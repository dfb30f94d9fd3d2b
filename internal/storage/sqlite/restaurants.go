package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharedtable/fare/internal/models"
)

// CreateRestaurant persists a restaurant. New restaurants are active.
func (s *SQLiteStore) CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	return insertRestaurant(ctx, s.db, restaurant)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRestaurant(ctx context.Context, db execer, restaurant *models.Restaurant) error {
	if restaurant.ID == "" {
		restaurant.ID = uuid.New().String()
	}
	restaurant.Active = true
	if restaurant.CreatedAt == 0 {
		restaurant.CreatedAt = time.Now().Unix()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO restaurants (id, name, address, cuisine, active, created_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM restaurants))`,
		restaurant.ID, restaurant.Name, restaurant.Address, nullable(restaurant.Cuisine),
		restaurant.Active, restaurant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert restaurant: %w", err)
	}
	return nil
}

// ListActiveRestaurants returns active restaurants in the order they were added.
func (s *SQLiteStore) ListActiveRestaurants(ctx context.Context) ([]*models.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, address, COALESCE(cuisine, ''), active, created_at FROM restaurants WHERE active = 1 ORDER BY seq",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []*models.Restaurant
	for rows.Next() {
		r := &models.Restaurant{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.Cuisine, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate restaurants: %w", err)
	}
	return restaurants, nil
}

// SeedRestaurants inserts restaurants when none exist yet.
func (s *SQLiteStore) SeedRestaurants(ctx context.Context, restaurants []*models.Restaurant) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM restaurants").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count restaurants: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for _, r := range restaurants {
		if err := insertRestaurant(ctx, tx, r); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(restaurants), nil
}
