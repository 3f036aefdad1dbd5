package domain

import (
	"fmt"
	"sort"
	"time"
)

// TableDefinition is one class of physical table for a single date: its
// seating capacity and the time slots still open on that date. IDs are
// assigned once at seeding time and never reused.
type TableDefinition struct {
	ID    string   `json:"id"`
	Size  int      `json:"size"`
	Times []string `json:"times"`
}

// DateAvailability holds the table inventory of one restaurant for one
// calendar day. Date is always UTC midnight. Version backs the
// compare-and-swap update in the repository; it is never touched here.
type DateAvailability struct {
	RestaurantID string
	Date         time.Time
	Tables       []TableDefinition
	Version      int64
}

// ReleaseStrategy selects how a cancelled booking finds its table again.
type ReleaseStrategy int

const (
	// ByExactTable releases the slot on the table the booking consumed.
	ByExactTable ReleaseStrategy = iota
	// ByClosestSizeMatch is the legacy fallback for bookings recorded
	// before table ids existed. It cannot disambiguate same-size tables
	// and is best-effort only.
	ByClosestSizeMatch
)

// NormalizeDate truncates t to UTC midnight so that date comparisons are
// immune to timezone drift between client and server.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date and normalizes it to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		// Full timestamps are accepted too; clients send both.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, ErrInvalidDate
		}
	}
	return NormalizeDate(t), nil
}

// ParseTimeOfDay validates a zero-padded 24h "HH:mm" string and returns it
// as minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatTimeOfDay is the inverse of ParseTimeOfDay.
func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FindTable returns the first table, in definition order, that seats the
// party and still has the exact requested time open. First fit wins; there
// is no best-fit pass over smaller adequate tables.
func (d *DateAvailability) FindTable(timeStr string, partySize int) (*TableDefinition, error) {
	for i := range d.Tables {
		t := &d.Tables[i]
		if t.Size < partySize {
			continue
		}
		for _, slot := range t.Times {
			if slot == timeStr {
				return t, nil
			}
		}
	}
	return nil, ErrNoSuitableTable
}

// ConsumeSlot removes timeStr from the named table. The caller must have
// verified the slot via FindTable first: a missing slot here means a
// concurrent writer took it and is reported as ErrSlotNotFound.
func (d *DateAvailability) ConsumeSlot(tableID, timeStr string) error {
	t := d.table(tableID)
	if t == nil {
		return ErrTableNotFound
	}
	for i, slot := range t.Times {
		if slot == timeStr {
			t.Times = append(t.Times[:i], t.Times[i+1:]...)
			return nil
		}
	}
	return ErrSlotNotFound
}

// ReleaseSlot puts timeStr back on the named table and keeps the slot set
// chronologically sorted. Releasing an already-present slot is a no-op so
// duplicate cancellations cannot inflate inventory.
func (d *DateAvailability) ReleaseSlot(tableID, timeStr string) error {
	t := d.table(tableID)
	if t == nil {
		return ErrTableNotFound
	}
	t.release(timeStr)
	return nil
}

// ReleaseSlotBySize is the ByClosestSizeMatch strategy: it targets the first
// table with the exact size, falling back to the smallest larger table.
func (d *DateAvailability) ReleaseSlotBySize(size int, timeStr string) error {
	var closest *TableDefinition
	for i := range d.Tables {
		t := &d.Tables[i]
		if t.Size == size {
			t.release(timeStr)
			return nil
		}
		if t.Size > size && (closest == nil || t.Size < closest.Size) {
			closest = t
		}
	}
	if closest == nil {
		return ErrTableNotFound
	}
	closest.release(timeStr)
	return nil
}

// HasTableWithin reports whether any table seats partySize and has at least
// one open slot inside the inclusive [loMin, hiMin] minutes-of-day window.
// partySize <= 0 disables the size filter.
func (d *DateAvailability) HasTableWithin(loMin, hiMin, partySize int) bool {
	for i := range d.Tables {
		t := &d.Tables[i]
		if partySize > 0 && t.Size < partySize {
			continue
		}
		for _, slot := range t.Times {
			m, err := ParseTimeOfDay(slot)
			if err != nil {
				continue
			}
			if m >= loMin && m <= hiMin {
				return true
			}
		}
	}
	return false
}

func (d *DateAvailability) table(id string) *TableDefinition {
	for i := range d.Tables {
		if d.Tables[i].ID == id {
			return &d.Tables[i]
		}
	}
	return nil
}

func (t *TableDefinition) release(timeStr string) {
	for _, slot := range t.Times {
		if slot == timeStr {
			return
		}
	}
	t.Times = append(t.Times, timeStr)
	SortTimes(t.Times)
}

// SortTimes orders HH:mm strings chronologically. Zero-padded 24h strings
// sort lexicographically, which is the same order.
func SortTimes(times []string) {
	sort.Strings(times)
}
