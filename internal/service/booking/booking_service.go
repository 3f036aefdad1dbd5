package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mkazantsev/tablebook/internal/domain"
	"github.com/mkazantsev/tablebook/internal/kafka"
	"github.com/mkazantsev/tablebook/internal/repository"
	qrcode "github.com/skip2/go-qrcode"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.BookingView, error)
	CancelBooking(ctx context.Context, bookingID string, req domain.Requester) (*domain.BookingView, error)
	ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	BookingQR(ctx context.Context, bookingID string, req domain.Requester) ([]byte, error)
	AuditInventory(ctx context.Context, date time.Time) (int, error)
}

type Cache interface {
	AcquireSlotLock(ctx context.Context, restaurantID string, date time.Time, timeStr string, ttl time.Duration) (bool, error)
	ReleaseSlotLock(ctx context.Context, restaurantID string, date time.Time, timeStr string) error
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

type BookingService struct {
	bookings      repository.BookingRepository
	restaurants   repository.RestaurantRepository
	availability  repository.AvailabilityRepository
	notifications repository.NotificationRepository
	cache         Cache
	producer      Producer
	eventsTopic   string
	lockTTL       time.Duration
	casRetries    int
	pubRetries    int
}

type CreateBookingInput struct {
	UserID       string `json:"-"`
	Email        string `json:"-"`
	RestaurantID string `json:"restaurant_id"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PartySize    string `json:"party_size"`
}

type BookingServiceOption func(*BookingService)

func WithCASRetries(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.casRetries = n
		}
	}
}

func WithPublishRetries(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.pubRetries = n
		}
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	restaurants repository.RestaurantRepository,
	availability repository.AvailabilityRepository,
	notifications repository.NotificationRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	lockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:      bookings,
		restaurants:   restaurants,
		availability:  availability,
		notifications: notifications,
		cache:         cache,
		producer:      producer,
		eventsTopic:   eventsTopic,
		lockTTL:       lockTTL,
		casRetries:    3,
		pubRetries:    3,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking matches the request to a table-time slot and consumes it.
// The booking row is written before the inventory mutation: a crash between
// the two leaves an over-count the audit can find, never a double-booking.
// Counter, event and notification record are fire-and-forget.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.BookingView, error) {
	if input.UserID == "" || input.RestaurantID == "" || input.Date == "" || input.Time == "" || input.PartySize == "" {
		return nil, domain.ErrMissingFields
	}
	partySize, err := strconv.Atoi(input.PartySize)
	if err != nil || partySize < 1 {
		return nil, domain.ErrInvalidPartySize
	}
	day, err := domain.ParseDate(input.Date)
	if err != nil {
		return nil, err
	}
	if _, err := domain.ParseTimeOfDay(input.Time); err != nil {
		return nil, err
	}

	rest, err := s.restaurants.GetByID(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}

	locked := false
	if s.cache != nil {
		ok, lockErr := s.cache.AcquireSlotLock(ctx, rest.ID, day, input.Time, s.lockTTL)
		if lockErr != nil {
			// Lock is an optimization; the CAS below still guarantees
			// at-most-one-writer-wins.
			log.Printf("acquire slot lock: %v", lockErr)
		} else if !ok {
			return nil, domain.ErrSlotNoLongerAvailable
		} else {
			locked = true
		}
	}
	if locked {
		defer func() {
			if err := s.cache.ReleaseSlotLock(ctx, rest.ID, day, input.Time); err != nil {
				log.Printf("release slot lock: %v", err)
			}
		}()
	}

	av, err := s.availability.GetForDate(ctx, rest.ID, day)
	if err != nil {
		return nil, err
	}
	table, err := av.FindTable(input.Time, partySize)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:           uuid.NewString(),
		UserID:       input.UserID,
		RestaurantID: rest.ID,
		Date:         day,
		Time:         input.Time,
		PartySize:    partySize,
		TableSize:    table.Size,
		TableID:      table.ID,
		Status:       domain.BookingStatusConfirmed,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	if err := s.consumeSlot(ctx, av, booking); err != nil {
		// The slot was lost to a concurrent writer: the freshly written
		// booking is voided (rows are never deleted) and the caller may
		// retry.
		if _, cancelErr := s.bookings.UpdateStatus(ctx, booking.ID, domain.BookingStatusCancelled); cancelErr != nil {
			log.Printf("consistency fault: booking %s holds no slot and could not be voided: %v", booking.ID, cancelErr)
		}
		return nil, err
	}

	if err := s.restaurants.IncrementBookingsToday(ctx, rest.ID); err != nil {
		log.Printf("increment daily counter for restaurant %s: %v", rest.ID, err)
	}
	s.publish(ctx, kafka.EventBookingConfirmed, booking, rest, input.Email)
	s.notify(ctx, booking, fmt.Sprintf("Your table for %d at %s on %s %s is confirmed", booking.PartySize, rest.Name, booking.Date.Format("2006-01-02"), booking.Time))

	return joinView(booking, rest), nil
}

// consumeSlot removes the matched slot under the availability row's version
// check. A version conflict re-reads and retries as long as the exact slot
// is still open; once it is gone the loss is surfaced as retryable.
func (s *BookingService) consumeSlot(ctx context.Context, av *domain.DateAvailability, booking *domain.Booking) error {
	for attempt := 0; attempt < s.casRetries; attempt++ {
		if err := av.ConsumeSlot(booking.TableID, booking.Time); err != nil {
			return domain.ErrSlotNoLongerAvailable
		}

		err := s.availability.UpdateCAS(ctx, av)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}

		fresh, readErr := s.availability.GetForDate(ctx, booking.RestaurantID, booking.Date)
		if readErr != nil {
			return readErr
		}
		av = fresh
	}
	return domain.ErrSlotNoLongerAvailable
}

// CancelBooking flips the booking to cancelled and then restores the slot.
// The status flip is the durability checkpoint: once it is written the
// reservation is gone, and every failure in the inventory repair afterwards
// is a logged consistency fault rather than an error.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string, req domain.Requester) (*domain.BookingView, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != req.UserID && !req.Admin {
		return nil, domain.ErrNotAuthorized
	}
	if current.Status == domain.BookingStatusCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}

	rest := s.repairInventory(ctx, updated)

	s.publish(ctx, kafka.EventBookingCancelled, updated, rest, req.Email)
	restName := updated.RestaurantID
	if rest != nil {
		restName = rest.Name
	}
	s.notify(ctx, updated, fmt.Sprintf("Your booking at %s on %s %s was cancelled", restName, updated.Date.Format("2006-01-02"), updated.Time))

	return joinView(updated, rest), nil
}

// repairInventory puts the cancelled booking's slot back. Missing links
// (restaurant, availability row, table definition) mean the inventory
// diverged from the booking log; each is reported and skipped.
func (s *BookingService) repairInventory(ctx context.Context, booking *domain.Booking) *domain.Restaurant {
	rest, err := s.restaurants.GetByID(ctx, booking.RestaurantID)
	if err != nil {
		log.Printf("consistency fault: cancelled booking %s references missing restaurant %s: %v", booking.ID, booking.RestaurantID, err)
		return nil
	}

	for attempt := 0; attempt < s.casRetries; attempt++ {
		av, err := s.availability.GetForDate(ctx, booking.RestaurantID, booking.Date)
		if err != nil {
			log.Printf("consistency fault: cancelled booking %s has no availability entry for %s: %v", booking.ID, booking.Date.Format("2006-01-02"), err)
			return rest
		}

		switch booking.ReleaseStrategyFor() {
		case domain.ByExactTable:
			err = av.ReleaseSlot(booking.TableID, booking.Time)
		case domain.ByClosestSizeMatch:
			// Legacy rows carry only the table size. Matching by size
			// cannot tell same-size tables apart, so this release is
			// best-effort by construction.
			err = av.ReleaseSlotBySize(booking.TableSize, booking.Time)
		}
		if err != nil {
			log.Printf("consistency fault: cancelled booking %s could not release slot %s: %v", booking.ID, booking.Time, err)
			return rest
		}

		err = s.availability.UpdateCAS(ctx, av)
		if err == nil {
			return rest
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			log.Printf("consistency fault: cancelled booking %s could not persist released slot: %v", booking.ID, err)
			return rest
		}
	}
	log.Printf("consistency fault: cancelled booking %s lost the availability update %d times", booking.ID, s.casRetries)
	return rest
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// BookingQR renders a PNG QR code of the booking reference for door checks.
func (s *BookingService) BookingQR(ctx context.Context, bookingID string, req domain.Requester) ([]byte, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != req.UserID && !req.Admin {
		return nil, domain.ErrNotAuthorized
	}
	content := fmt.Sprintf("tablebook:%s:%s:%s", booking.ID, booking.Date.Format("2006-01-02"), booking.Time)
	return qrcode.Encode(content, qrcode.Medium, 256)
}

// AuditInventory checks, for one day, that no confirmed booking's slot is
// still open in the table inventory. Faults are logged, not repaired; the
// count is returned for the worker's log line.
func (s *BookingService) AuditInventory(ctx context.Context, date time.Time) (int, error) {
	day := domain.NormalizeDate(date)
	bookings, err := s.bookings.ListConfirmedForDate(ctx, day)
	if err != nil {
		return 0, err
	}
	if len(bookings) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(bookings))
	seen := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		if !seen[b.RestaurantID] {
			seen[b.RestaurantID] = true
			ids = append(ids, b.RestaurantID)
		}
	}
	avs, err := s.availability.ListForDate(ctx, ids, day)
	if err != nil {
		return 0, err
	}

	faults := 0
	for _, b := range bookings {
		if b.TableID == "" {
			// Legacy rows cannot be pinned to a specific table.
			continue
		}
		av := avs[b.RestaurantID]
		if av == nil {
			log.Printf("consistency fault: confirmed booking %s has no availability entry for %s", b.ID, day.Format("2006-01-02"))
			faults++
			continue
		}
		if openOnTable(av, b.TableID, b.Time) {
			log.Printf("consistency fault: slot %s on table %s is open but booking %s is confirmed", b.Time, b.TableID, b.ID)
			faults++
		}
	}
	return faults, nil
}

func openOnTable(av *domain.DateAvailability, tableID, timeStr string) bool {
	for _, t := range av.Tables {
		if t.ID != tableID {
			continue
		}
		for _, slot := range t.Times {
			if slot == timeStr {
				return true
			}
		}
	}
	return false
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking, rest *domain.Restaurant, email string) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:         eventType,
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		Email:        email,
		RestaurantID: booking.RestaurantID,
		Date:         booking.Date,
		Time:         booking.Time,
		PartySize:    booking.PartySize,
		TableSize:    booking.TableSize,
		Status:       string(booking.Status),
	}
	if rest != nil {
		event.RestaurantName = rest.Name
	}
	if err := s.producer.PublishWithRetry(ctx, s.eventsTopic, booking.ID, event, s.pubRetries); err != nil {
		log.Printf("publish %s event for booking %s: %v", eventType, booking.ID, err)
	}
}

func (s *BookingService) notify(ctx context.Context, booking *domain.Booking, message string) {
	if s.notifications == nil {
		return
	}
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    booking.UserID,
		Message:   message,
		Type:      string(booking.Status),
		BookingID: booking.ID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		log.Printf("create notification record for booking %s: %v", booking.ID, err)
	}
}

func joinView(booking *domain.Booking, rest *domain.Restaurant) *domain.BookingView {
	view := &domain.BookingView{Booking: *booking}
	if rest != nil {
		view.RestaurantName = rest.Name
		view.RestaurantCity = rest.City
	}
	return view
}

var _ BookingUseCase = (*BookingService)(nil)
