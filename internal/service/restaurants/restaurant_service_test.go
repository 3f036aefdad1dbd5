package restaurants

import (
	"context"
	"testing"
	"time"

	"github.com/mkazantsev/tablebook/internal/domain"
	"github.com/mkazantsev/tablebook/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRestaurantRepository struct {
	mock.Mock
}

func (m *MockRestaurantRepository) Create(ctx context.Context, r *domain.Restaurant) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRestaurantRepository) GetByID(ctx context.Context, id string) (*domain.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Restaurant), args.Error(1)
}

func (m *MockRestaurantRepository) List(ctx context.Context, filter repository.RestaurantFilter) ([]domain.Restaurant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Restaurant), args.Error(1)
}

func (m *MockRestaurantRepository) IncrementBookingsToday(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRestaurantRepository) ResetBookingsToday(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockAvailabilityRepository struct {
	mock.Mock
}

func (m *MockAvailabilityRepository) GetForDate(ctx context.Context, restaurantID string, date time.Time) (*domain.DateAvailability, error) {
	args := m.Called(ctx, restaurantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DateAvailability), args.Error(1)
}

func (m *MockAvailabilityRepository) ListForDate(ctx context.Context, restaurantIDs []string, date time.Time) (map[string]*domain.DateAvailability, error) {
	args := m.Called(ctx, restaurantIDs, date)
	return args.Get(0).(map[string]*domain.DateAvailability), args.Error(1)
}

func (m *MockAvailabilityRepository) Upsert(ctx context.Context, av *domain.DateAvailability) error {
	args := m.Called(ctx, av)
	return args.Error(0)
}

func (m *MockAvailabilityRepository) UpdateCAS(ctx context.Context, av *domain.DateAvailability) error {
	args := m.Called(ctx, av)
	return args.Error(0)
}

func TestRegister(t *testing.T) {
	restaurants := &MockRestaurantRepository{}
	service := NewRestaurantService(restaurants, &MockAvailabilityRepository{})
	ctx := context.Background()

	restaurants.On("Create", ctx, mock.AnythingOfType("*domain.Restaurant")).Return(nil).Once()

	rest, err := service.Register(ctx, RegisterInput{
		Name:      "Chez Marie Bistro",
		City:      "Boston",
		ManagerID: "mgr-1",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, rest.ID)
	assert.Equal(t, "chez-marie-bistro", rest.Slug)
	assert.False(t, rest.Approved)
	restaurants.AssertExpectations(t)
}

func TestRegister_Validation(t *testing.T) {
	restaurants := &MockRestaurantRepository{}
	service := NewRestaurantService(restaurants, &MockAvailabilityRepository{})
	ctx := context.Background()

	testCases := []struct {
		name  string
		input RegisterInput
	}{
		{"no name", RegisterInput{City: "Boston", ManagerID: "mgr-1"}},
		{"no city", RegisterInput{Name: "Chez Marie", ManagerID: "mgr-1"}},
		{"no manager", RegisterInput{Name: "Chez Marie", City: "Boston"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(ctx, tc.input)
			assert.ErrorIs(t, err, domain.ErrMissingFields)
		})
	}
	restaurants.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func managedRestaurant() *domain.Restaurant {
	return &domain.Restaurant{ID: "rest-1", Name: "Trattoria", ManagerID: "mgr-1"}
}

func validSeed() SetAvailabilityInput {
	return SetAvailabilityInput{
		Date: "2024-06-01",
		Tables: []TableSeed{
			{Size: 2, Times: []string{"19:00", "18:00"}},
			{Size: 4, Times: []string{"18:30"}},
		},
	}
}

func TestSetAvailability(t *testing.T) {
	restaurants := &MockRestaurantRepository{}
	availability := &MockAvailabilityRepository{}
	service := NewRestaurantService(restaurants, availability)
	ctx := context.Background()

	restaurants.On("GetByID", ctx, "rest-1").Return(managedRestaurant(), nil).Once()
	availability.On("Upsert", ctx, mock.AnythingOfType("*domain.DateAvailability")).Return(nil).Once()

	av, err := service.SetAvailability(ctx, "rest-1", domain.Requester{UserID: "mgr-1"}, validSeed())

	require.NoError(t, err)
	assert.Equal(t, "rest-1", av.RestaurantID)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), av.Date)
	require.Len(t, av.Tables, 2)
	// Ids are assigned and times come back sorted.
	assert.NotEmpty(t, av.Tables[0].ID)
	assert.NotEqual(t, av.Tables[0].ID, av.Tables[1].ID)
	assert.Equal(t, []string{"18:00", "19:00"}, av.Tables[0].Times)
	availability.AssertExpectations(t)
}

func TestSetAvailability_Validation(t *testing.T) {
	restaurants := &MockRestaurantRepository{}
	availability := &MockAvailabilityRepository{}
	service := NewRestaurantService(restaurants, availability)
	ctx := context.Background()

	testCases := []struct {
		name   string
		mutate func(*SetAvailabilityInput)
	}{
		{"no date", func(in *SetAvailabilityInput) { in.Date = "" }},
		{"no tables", func(in *SetAvailabilityInput) { in.Tables = nil }},
		{"zero size", func(in *SetAvailabilityInput) { in.Tables[0].Size = 0 }},
		{"no times", func(in *SetAvailabilityInput) { in.Tables[0].Times = nil }},
		{"bad time", func(in *SetAvailabilityInput) { in.Tables[0].Times = []string{"25:00"} }},
		{"duplicate times", func(in *SetAvailabilityInput) { in.Tables[0].Times = []string{"18:00", "18:00"} }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validSeed()
			tc.mutate(&input)
			_, err := service.SetAvailability(ctx, "rest-1", domain.Requester{UserID: "mgr-1"}, input)
			assert.ErrorIs(t, err, domain.ErrInvalidInventory)
		})
	}
	availability.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSetAvailability_Authz(t *testing.T) {
	ctx := context.Background()

	t.Run("stranger is rejected", func(t *testing.T) {
		restaurants := &MockRestaurantRepository{}
		availability := &MockAvailabilityRepository{}
		service := NewRestaurantService(restaurants, availability)

		restaurants.On("GetByID", ctx, "rest-1").Return(managedRestaurant(), nil).Once()

		_, err := service.SetAvailability(ctx, "rest-1", domain.Requester{UserID: "mgr-2"}, validSeed())
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
		availability.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("admin may set", func(t *testing.T) {
		restaurants := &MockRestaurantRepository{}
		availability := &MockAvailabilityRepository{}
		service := NewRestaurantService(restaurants, availability)

		restaurants.On("GetByID", ctx, "rest-1").Return(managedRestaurant(), nil).Once()
		availability.On("Upsert", ctx, mock.AnythingOfType("*domain.DateAvailability")).Return(nil).Once()

		_, err := service.SetAvailability(ctx, "rest-1", domain.Requester{UserID: "admin-1", Admin: true}, validSeed())
		assert.NoError(t, err)
	})

	t.Run("unknown restaurant", func(t *testing.T) {
		restaurants := &MockRestaurantRepository{}
		service := NewRestaurantService(restaurants, &MockAvailabilityRepository{})

		restaurants.On("GetByID", ctx, "rest-x").Return(nil, domain.ErrRestaurantNotFound).Once()

		_, err := service.SetAvailability(ctx, "rest-x", domain.Requester{UserID: "mgr-1"}, validSeed())
		assert.ErrorIs(t, err, domain.ErrRestaurantNotFound)
	})
}
