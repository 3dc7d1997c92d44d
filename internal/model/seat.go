package model

import "time"

// Seat is the authoritative allocation record for one sellable seat of
// one event.  Rows are created in bulk when the event is created and
// are never deleted while the event exists.  The status column is only
// ever written through conditional, status-guarded updates; HeldBy and
// HeldUntil are set exactly when Status is HELD and are null otherwise.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – event this seat belongs to.
//  Section    – section label within the venue.
//  RowLabel   – letter(s) designating the row (A, B, ... AA).
//  SeatNumber – number of the seat within the row.
//  PriceCents – sale price in cents, frozen at event creation.
//  Status     – allocation state (AVAILABLE, HELD, BOOKED, BLOCKED).
//  HeldBy     – user holding the seat; nil unless HELD.
//  HeldUntil  – hold deadline in UTC; nil unless HELD.
//  Version    – monotonic counter bumped on every status transition.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64     `json:"id"`                   // seats.id
	EventID    uint64     `json:"event_id"`             // seats.event_id
	Section    string     `json:"section"`              // seats.section
	RowLabel   string     `json:"row_label"`            // seats.row_label
	SeatNumber uint32     `json:"seat_number"`          // seats.seat_number
	PriceCents uint32     `json:"price_cents"`          // seats.price_cents
	Status     SeatStatus `json:"status"`               // seats.status
	HeldBy     *uint64    `json:"held_by,omitempty"`    // seats.held_by (nullable)
	HeldUntil  *time.Time `json:"held_until,omitempty"` // seats.held_until (nullable)
	Version    uint32     `json:"version"`              // seats.version
	CreatedAt  time.Time  `json:"created_at"`           // seats.created_at
	UpdatedAt  time.Time  `json:"updated_at"`           // seats.updated_at
}
