package model

import "time"

// Booking groups the seats a user is buying for one event under a single
// payment deadline.  A booking is created PENDING from the user's active
// holds; its ExpiresAt equals the earliest hold deadline among the seats
// it captured, so the booking can never outlive the shortest-lived hold.
// The Version counter is the optimistic lock for the confirm path, where
// an expiry sweep and a user confirm may race on the same row.
//
// Fields:
//  ID                 – primary key identifier.
//  UserID             – user who owns the booking.
//  EventID            – event the seats belong to.
//  Status             – PENDING, CONFIRMED, CANCELLED or EXPIRED.
//  TotalAmountCents   – sum of captured seat prices.
//  TaxAmountCents     – tax on top of the total.
//  FinalAmountCents   – total plus tax; the amount actually charged.
//  ExpiresAt          – payment deadline; cleared once confirmed.
//  Version            – optimistic-lock counter.
//  PaymentID          – gateway reference; nil until confirmed.
//  PaymentMethod      – payment method; nil until confirmed.
//  ConfirmedAt        – when the booking was confirmed.
//  CancelledAt        – when the booking was cancelled.
//  CancellationReason – caller-supplied reason, if any.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Booking struct {
	ID                 uint64        `json:"id"`                            // bookings.id
	UserID             uint64        `json:"user_id"`                       // bookings.user_id
	EventID            uint64        `json:"event_id"`                      // bookings.event_id
	Status             BookingStatus `json:"status"`                        // bookings.status
	TotalAmountCents   uint32        `json:"total_amount_cents"`            // bookings.total_amount_cents
	TaxAmountCents     uint32        `json:"tax_amount_cents"`              // bookings.tax_amount_cents
	FinalAmountCents   uint32        `json:"final_amount_cents"`            // bookings.final_amount_cents
	ExpiresAt          *time.Time    `json:"expires_at,omitempty"`          // bookings.expires_at (nullable)
	Version            uint32        `json:"version"`                       // bookings.version
	PaymentID          *string       `json:"payment_id,omitempty"`          // bookings.payment_id (nullable)
	PaymentMethod      *string       `json:"payment_method,omitempty"`      // bookings.payment_method (nullable)
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`        // bookings.confirmed_at (nullable)
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`        // bookings.cancelled_at (nullable)
	CancellationReason *string       `json:"cancellation_reason,omitempty"` // bookings.cancellation_reason (nullable)
	CreatedAt          time.Time     `json:"created_at"`                    // bookings.created_at
	UpdatedAt          time.Time     `json:"updated_at"`                    // bookings.updated_at
}

// BookingItem links a booking to one seat at the price frozen when the
// booking was created.  Items are retained when a booking is cancelled
// or expires so the record of what was originally booked survives.
//
// Fields:
//  ID         – primary key identifier.
//  BookingID  – reference to the booking.
//  SeatID     – seat captured by the booking.
//  PriceCents – seat price at booking time.
//  CreatedAt  – creation timestamp.
type BookingItem struct {
	ID         uint64    `json:"id"`          // booking_items.id
	BookingID  uint64    `json:"booking_id"`  // booking_items.booking_id
	SeatID     uint64    `json:"seat_id"`     // booking_items.seat_id
	PriceCents uint32    `json:"price_cents"` // booking_items.price_cents
	CreatedAt  time.Time `json:"created_at"`  // booking_items.created_at
}
