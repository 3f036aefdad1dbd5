package search

import (
	"context"
	"log"
	"strconv"

	"github.com/mkazantsev/tablebook/internal/domain"
	"github.com/mkazantsev/tablebook/internal/repository"
)

// toleranceMinutes widens the requested time for search only; the booking
// path always matches the exact slot.
const toleranceMinutes = 30

type SearchUseCase interface {
	Search(ctx context.Context, input SearchInput) ([]RestaurantSummary, error)
	Get(ctx context.Context, id string) (*RestaurantSummary, error)
}

type ListingCache interface {
	GetListing(ctx context.Context) ([]domain.Restaurant, error)
	SetListing(ctx context.Context, restaurants []domain.Restaurant) error
}

type SearchInput struct {
	City       string
	PostalCode string
	Date       string
	Time       string
	PartySize  string
}

// RestaurantSummary is a restaurant annotated with its review aggregate.
// The rating fields are projections of collaborator data and carry no
// booking semantics.
type RestaurantSummary struct {
	domain.Restaurant
	Rating      float64
	ReviewCount int
}

type SearchService struct {
	restaurants  repository.RestaurantRepository
	availability repository.AvailabilityRepository
	reviews      repository.ReviewRepository
	cache        ListingCache
}

func NewSearchService(
	restaurants repository.RestaurantRepository,
	availability repository.AvailabilityRepository,
	reviews repository.ReviewRepository,
	cache ListingCache,
) *SearchService {
	return &SearchService{
		restaurants:  restaurants,
		availability: availability,
		reviews:      reviews,
		cache:        cache,
	}
}

// Search lists approved restaurants, optionally filtered by location, and —
// when date and time are both given — keeps only those with a table inside
// the ±30 minute window around the requested time. An unparseable party
// size drops the size filter instead of failing the search.
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]RestaurantSummary, error) {
	filtered := input.Date != "" && input.Time != ""

	if !filtered {
		return s.listing(ctx, input)
	}

	day, err := domain.ParseDate(input.Date)
	if err != nil {
		return nil, err
	}
	requested, err := domain.ParseTimeOfDay(input.Time)
	if err != nil {
		return nil, err
	}
	lo := requested - toleranceMinutes
	if lo < 0 {
		lo = 0
	}
	hi := requested + toleranceMinutes
	if hi > 23*60+59 {
		hi = 23*60 + 59
	}

	partySize := 0
	if input.PartySize != "" {
		if n, err := strconv.Atoi(input.PartySize); err == nil && n >= 1 {
			partySize = n
		}
	}

	restaurants, err := s.restaurants.List(ctx, repository.RestaurantFilter{
		City:         input.City,
		PostalCode:   input.PostalCode,
		ApprovedOnly: true,
	})
	if err != nil {
		return nil, err
	}
	if len(restaurants) == 0 {
		return []RestaurantSummary{}, nil
	}

	ids := make([]string, len(restaurants))
	for i, r := range restaurants {
		ids[i] = r.ID
	}
	avs, err := s.availability.ListForDate(ctx, ids, day)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Restaurant, 0, len(restaurants))
	for _, r := range restaurants {
		av := avs[r.ID]
		if av == nil {
			continue
		}
		if av.HasTableWithin(lo, hi, partySize) {
			matched = append(matched, r)
		}
	}
	return s.annotate(ctx, matched)
}

func (s *SearchService) Get(ctx context.Context, id string) (*RestaurantSummary, error) {
	rest, err := s.restaurants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summaries, err := s.annotate(ctx, []domain.Restaurant{*rest})
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// listing is the unfiltered browse path; the fully unfiltered approved list
// is served from cache when possible.
func (s *SearchService) listing(ctx context.Context, input SearchInput) ([]RestaurantSummary, error) {
	unfiltered := input.City == "" && input.PostalCode == ""

	if unfiltered && s.cache != nil {
		if cached, err := s.cache.GetListing(ctx); err == nil && cached != nil {
			return s.annotate(ctx, cached)
		}
	}

	restaurants, err := s.restaurants.List(ctx, repository.RestaurantFilter{
		City:         input.City,
		PostalCode:   input.PostalCode,
		ApprovedOnly: true,
	})
	if err != nil {
		return nil, err
	}
	if unfiltered && s.cache != nil {
		if err := s.cache.SetListing(ctx, restaurants); err != nil {
			log.Printf("cache restaurant listing: %v", err)
		}
	}
	return s.annotate(ctx, restaurants)
}

func (s *SearchService) annotate(ctx context.Context, restaurants []domain.Restaurant) ([]RestaurantSummary, error) {
	summaries := make([]RestaurantSummary, 0, len(restaurants))
	if len(restaurants) == 0 {
		return summaries, nil
	}

	ids := make([]string, len(restaurants))
	for i, r := range restaurants {
		ids[i] = r.ID
	}
	aggregates := map[string]domain.ReviewAggregate{}
	if s.reviews != nil {
		var err error
		aggregates, err = s.reviews.AggregatesByRestaurant(ctx, ids)
		if err != nil {
			// Ratings are decoration; a failed lookup degrades to zeros.
			log.Printf("review aggregates: %v", err)
			aggregates = map[string]domain.ReviewAggregate{}
		}
	}

	for _, r := range restaurants {
		agg := aggregates[r.ID]
		summaries = append(summaries, RestaurantSummary{
			Restaurant:  r,
			Rating:      agg.Rating,
			ReviewCount: agg.Count,
		})
	}
	return summaries, nil
}

var _ SearchUseCase = (*SearchService)(nil)
