package restaurants

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/mkazantsev/tablebook/internal/domain"
	"github.com/mkazantsev/tablebook/internal/repository"
)

type RestaurantUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.Restaurant, error)
	SetAvailability(ctx context.Context, restaurantID string, req domain.Requester, input SetAvailabilityInput) (*domain.DateAvailability, error)
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
}

type RegisterInput struct {
	Name        string `json:"name" validate:"required"`
	City        string `json:"city" validate:"required"`
	PostalCode  string `json:"postal_code"`
	ManagerID   string `json:"-" validate:"required"`
	ManagerName string `json:"-"`
}

type TableSeed struct {
	Size  int      `json:"size" validate:"required,min=1"`
	Times []string `json:"times" validate:"required,min=1,unique,dive,datetime=15:04"`
}

type SetAvailabilityInput struct {
	Date   string      `json:"date" validate:"required"`
	Tables []TableSeed `json:"tables" validate:"required,min=1,dive"`
}

type RestaurantService struct {
	restaurants  repository.RestaurantRepository
	availability repository.AvailabilityRepository
	validate     *validator.Validate
}

func NewRestaurantService(restaurants repository.RestaurantRepository, availability repository.AvailabilityRepository) *RestaurantService {
	return &RestaurantService{
		restaurants:  restaurants,
		availability: availability,
		validate:     validator.New(),
	}
}

// Register creates an unapproved venue. Approval is a moderation concern
// outside this service; until it happens the restaurant is bookable by id
// but hidden from search.
func (s *RestaurantService) Register(ctx context.Context, input RegisterInput) (*domain.Restaurant, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingFields, err)
	}

	rest := &domain.Restaurant{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		City:        input.City,
		PostalCode:  input.PostalCode,
		ManagerID:   input.ManagerID,
		ManagerName: input.ManagerName,
	}
	if err := s.restaurants.Create(ctx, rest); err != nil {
		return nil, err
	}
	return rest, nil
}

// SetAvailability replaces the table inventory of one day. Table ids are
// assigned here and never reused; times are stored sorted.
func (s *RestaurantService) SetAvailability(ctx context.Context, restaurantID string, req domain.Requester, input SetAvailabilityInput) (*domain.DateAvailability, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInventory, err)
	}
	day, err := domain.ParseDate(input.Date)
	if err != nil {
		return nil, err
	}

	rest, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if rest.ManagerID != req.UserID && !req.Admin {
		return nil, domain.ErrNotAuthorized
	}

	tables := make([]domain.TableDefinition, len(input.Tables))
	for i, seed := range input.Tables {
		times := append([]string(nil), seed.Times...)
		domain.SortTimes(times)
		tables[i] = domain.TableDefinition{
			ID:    uuid.NewString(),
			Size:  seed.Size,
			Times: times,
		}
	}

	av := &domain.DateAvailability{
		RestaurantID: rest.ID,
		Date:         day,
		Tables:       tables,
	}
	if err := s.availability.Upsert(ctx, av); err != nil {
		return nil, err
	}
	return av, nil
}

func (s *RestaurantService) Get(ctx context.Context, id string) (*domain.Restaurant, error) {
	return s.restaurants.GetByID(ctx, id)
}

var _ RestaurantUseCase = (*RestaurantService)(nil)
