package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkazantsev/tablebook/internal/domain"
)

// ReviewRepository exposes only the aggregates the search surface needs.
// Review writes belong to a separate collaborator.
type ReviewRepository interface {
	AggregatesByRestaurant(ctx context.Context, restaurantIDs []string) (map[string]domain.ReviewAggregate, error)
}

type PGReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewRepository {
	return &PGReviewRepository{db: db}
}

func (r *PGReviewRepository) AggregatesByRestaurant(ctx context.Context, restaurantIDs []string) (map[string]domain.ReviewAggregate, error) {
	rows, err := r.db.Query(ctx, `SELECT restaurant_id, round(avg(rating)::numeric, 1), count(*) FROM reviews WHERE restaurant_id = ANY($1) GROUP BY restaurant_id`, restaurantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aggregates := make(map[string]domain.ReviewAggregate, len(restaurantIDs))
	for rows.Next() {
		var id string
		var agg domain.ReviewAggregate
		if err := rows.Scan(&id, &agg.Rating, &agg.Count); err != nil {
			return nil, err
		}
		aggregates[id] = agg
	}
	return aggregates, rows.Err()
}

var _ ReviewRepository = (*PGReviewRepository)(nil)
