package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkazantsev/tablebook/internal/domain"
)

// AvailabilityRepository stores one row per (restaurant, UTC day). The table
// set is a JSONB document updated as a whole; the version column backs the
// compare-and-swap that serializes concurrent slot mutations.
type AvailabilityRepository interface {
	GetForDate(ctx context.Context, restaurantID string, date time.Time) (*domain.DateAvailability, error)
	ListForDate(ctx context.Context, restaurantIDs []string, date time.Time) (map[string]*domain.DateAvailability, error)
	Upsert(ctx context.Context, av *domain.DateAvailability) error
	UpdateCAS(ctx context.Context, av *domain.DateAvailability) error
}

type PGAvailabilityRepository struct {
	db *pgxpool.Pool
}

func NewAvailabilityRepository(db *pgxpool.Pool) AvailabilityRepository {
	return &PGAvailabilityRepository{db: db}
}

func (r *PGAvailabilityRepository) GetForDate(ctx context.Context, restaurantID string, date time.Time) (*domain.DateAvailability, error) {
	day := domain.NormalizeDate(date)
	row := r.db.QueryRow(ctx, `SELECT restaurant_id, date, tables, version FROM availability WHERE restaurant_id=$1 AND date=$2`, restaurantID, day)

	av, err := scanAvailability(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoAvailabilityForDate
		}
		return nil, err
	}
	return av, nil
}

func (r *PGAvailabilityRepository) ListForDate(ctx context.Context, restaurantIDs []string, date time.Time) (map[string]*domain.DateAvailability, error) {
	day := domain.NormalizeDate(date)
	rows, err := r.db.Query(ctx, `SELECT restaurant_id, date, tables, version FROM availability WHERE date=$1 AND restaurant_id = ANY($2)`, day, restaurantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byRestaurant := make(map[string]*domain.DateAvailability, len(restaurantIDs))
	for rows.Next() {
		av, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		byRestaurant[av.RestaurantID] = av
	}
	return byRestaurant, rows.Err()
}

// Upsert replaces the whole table set for the day. Seeding overwrites any
// concurrent slot mutation, so the version still advances.
func (r *PGAvailabilityRepository) Upsert(ctx context.Context, av *domain.DateAvailability) error {
	payload, err := json.Marshal(av.Tables)
	if err != nil {
		return err
	}
	av.Date = domain.NormalizeDate(av.Date)
	return r.db.QueryRow(ctx, `INSERT INTO availability (restaurant_id, date, tables, version)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (restaurant_id, date)
		DO UPDATE SET tables = EXCLUDED.tables, version = availability.version + 1, updated_at = now()
		RETURNING version`, av.RestaurantID, av.Date, payload).Scan(&av.Version)
}

// UpdateCAS writes the mutated document only if nobody advanced the version
// since it was read. A zero row count means a concurrent writer won.
func (r *PGAvailabilityRepository) UpdateCAS(ctx context.Context, av *domain.DateAvailability) error {
	payload, err := json.Marshal(av.Tables)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE availability SET tables=$1, version = version + 1, updated_at = now() WHERE restaurant_id=$2 AND date=$3 AND version=$4`,
		payload, av.RestaurantID, av.Date, av.Version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	av.Version++
	return nil
}

func scanAvailability(row pgx.Row) (*domain.DateAvailability, error) {
	var av domain.DateAvailability
	var tables []byte
	if err := row.Scan(&av.RestaurantID, &av.Date, &tables, &av.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tables, &av.Tables); err != nil {
		return nil, err
	}
	av.Date = domain.NormalizeDate(av.Date)
	return &av, nil
}

var _ AvailabilityRepository = (*PGAvailabilityRepository)(nil)
