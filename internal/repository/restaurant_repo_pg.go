package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkazantsev/tablebook/internal/domain"
)

type RestaurantFilter struct {
	City         string
	PostalCode   string
	ApprovedOnly bool
}

type RestaurantRepository interface {
	Create(ctx context.Context, r *domain.Restaurant) error
	GetByID(ctx context.Context, id string) (*domain.Restaurant, error)
	List(ctx context.Context, filter RestaurantFilter) ([]domain.Restaurant, error)
	IncrementBookingsToday(ctx context.Context, id string) error
	ResetBookingsToday(ctx context.Context) (int64, error)
}

type PGRestaurantRepository struct {
	db *pgxpool.Pool
}

func NewRestaurantRepository(db *pgxpool.Pool) RestaurantRepository {
	return &PGRestaurantRepository{db: db}
}

const restaurantColumns = `id, name, slug, city, postal_code, manager_id, manager_name, approved, bookings_today, created_at, updated_at`

func (r *PGRestaurantRepository) Create(ctx context.Context, rest *domain.Restaurant) error {
	return r.db.QueryRow(ctx, `INSERT INTO restaurants (id, name, slug, city, postal_code, manager_id, manager_name, approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		rest.ID, rest.Name, rest.Slug, rest.City, rest.PostalCode, rest.ManagerID, rest.ManagerName, rest.Approved).
		Scan(&rest.CreatedAt, &rest.UpdatedAt)
}

func (r *PGRestaurantRepository) GetByID(ctx context.Context, id string) (*domain.Restaurant, error) {
	row := r.db.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id=$1`, id)
	rest, err := scanRestaurant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRestaurantNotFound
		}
		return nil, err
	}
	return rest, nil
}

func (r *PGRestaurantRepository) List(ctx context.Context, filter RestaurantFilter) ([]domain.Restaurant, error) {
	query := `SELECT ` + restaurantColumns + ` FROM restaurants WHERE 1=1`
	args := []interface{}{}
	if filter.ApprovedOnly {
		query += ` AND approved`
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += ` AND lower(city) = lower($1)`
	}
	if filter.PostalCode != "" {
		args = append(args, filter.PostalCode)
		if len(args) == 1 {
			query += ` AND postal_code = $1`
		} else {
			query += ` AND postal_code = $2`
		}
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	restaurants := make([]domain.Restaurant, 0)
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, *rest)
	}
	return restaurants, rows.Err()
}

func (r *PGRestaurantRepository) IncrementBookingsToday(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE restaurants SET bookings_today = bookings_today + 1, updated_at = now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRestaurantNotFound
	}
	return nil
}

func (r *PGRestaurantRepository) ResetBookingsToday(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE restaurants SET bookings_today = 0, updated_at = now() WHERE bookings_today <> 0`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanRestaurant(row pgx.Row) (*domain.Restaurant, error) {
	var rest domain.Restaurant
	if err := row.Scan(&rest.ID, &rest.Name, &rest.Slug, &rest.City, &rest.PostalCode, &rest.ManagerID, &rest.ManagerName, &rest.Approved, &rest.BookingsToday, &rest.CreatedAt, &rest.UpdatedAt); err != nil {
		return nil, err
	}
	return &rest, nil
}

var _ RestaurantRepository = (*PGRestaurantRepository)(nil)
