package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is the source of truth for a consumed slot: the absence of the
// slot in the table inventory is a projection of this record and the two are
// reconciled on every transition. Bookings are never deleted.
type Booking struct {
	ID           string
	UserID       string
	RestaurantID string
	Date         time.Time
	Time         string
	PartySize    int
	TableSize    int
	// TableID points at the exact table definition consumed. Empty on
	// rows that predate table ids; those release by size instead.
	TableID   string
	Status    BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReleaseStrategyFor picks how this booking's slot is restored on
// cancellation.
func (b *Booking) ReleaseStrategyFor() ReleaseStrategy {
	if b.TableID == "" {
		return ByClosestSizeMatch
	}
	return ByExactTable
}

// BookingView is the joined projection returned to callers and carried on
// lifecycle events. Restaurant fields are empty when the join fails.
type BookingView struct {
	Booking
	RestaurantName string
	RestaurantCity string
}

// Requester identifies the authenticated caller of a booking operation.
type Requester struct {
	UserID string
	Email  string
	Admin  bool
}
