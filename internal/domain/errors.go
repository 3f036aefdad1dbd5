package domain

import "errors"

var (
	ErrMissingFields     = errors.New("all fields are required")
	ErrInvalidPartySize  = errors.New("party size must be a positive number")
	ErrInvalidTimeFormat = errors.New("time must be in HH:mm format")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidInventory  = errors.New("invalid table inventory")

	ErrRestaurantNotFound    = errors.New("restaurant not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrNoAvailabilityForDate = errors.New("no availability for this date")
	ErrNoSuitableTable       = errors.New("no suitable table available")
	ErrTableNotFound         = errors.New("table definition not found")
	ErrSlotNotFound          = errors.New("time slot not found")

	ErrNotAuthorized    = errors.New("not authorized")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")

	// ErrSlotNoLongerAvailable is retryable: a concurrent booking won the slot.
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")

	// ErrVersionConflict is returned by the availability repository when a
	// compare-and-swap update lost to a concurrent writer.
	ErrVersionConflict = errors.New("availability version conflict")
)
