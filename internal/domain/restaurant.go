package domain

import "time"

type Restaurant struct {
	ID          string
	Name        string
	Slug        string
	City        string
	PostalCode  string
	ManagerID   string
	ManagerName string
	// Approved gates search visibility; moderation itself happens outside
	// this service.
	Approved bool
	// BookingsToday is a display-only counter, reset nightly by the worker.
	// It carries no correctness weight.
	BookingsToday int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReviewAggregate is a read-only projection over collaborator review data,
// attached to search results.
type ReviewAggregate struct {
	Rating float64
	Count  int
}

type Notification struct {
	ID        string
	UserID    string
	Message   string
	Type      string
	BookingID string
	CreatedAt time.Time
}
