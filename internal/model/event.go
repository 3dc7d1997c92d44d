package model

import "time"

// Event represents a scheduled, ticketed occasion (a concert, a game, a
// screening).  The AvailableSeats counter is the aggregate capacity
// account: it equals the number of seats currently in the AVAILABLE
// state, except for a brief eventually-consistent window right after a
// bulk expiry sweep.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – public title of the event.
//  Venue          – human readable venue name.
//  StartsAt       – when the event begins (UTC).
//  TotalSeats     – number of seat rows generated at creation; never changes.
//  AvailableSeats – mutable counter of AVAILABLE seats.
//  Status         – sale state (ON_SALE, CLOSED, CANCELLED).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Event struct {
	ID             uint64      `json:"id"`              // events.id
	Name           string      `json:"name"`            // events.name
	Venue          string      `json:"venue"`           // events.venue
	StartsAt       time.Time   `json:"starts_at"`       // events.starts_at
	TotalSeats     uint32      `json:"total_seats"`     // events.total_seats
	AvailableSeats uint32      `json:"available_seats"` // events.available_seats
	Status         EventStatus `json:"status"`          // events.status
	CreatedAt      time.Time   `json:"created_at"`      // events.created_at
	UpdatedAt      time.Time   `json:"updated_at"`      // events.updated_at
}

// Bookable reports whether the event can accept new holds and bookings
// at the given instant: it must be on sale and must not have started.
func (e *Event) Bookable(now time.Time) bool {
	return e.Status == EventOnSale && e.StartsAt.After(now)
}
