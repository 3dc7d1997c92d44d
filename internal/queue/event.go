// Package queue defines message payloads exchanged over the message
// broker, the publisher that emits them and the background consumer.
package queue

// BookingConfirmedEvent is published when a booking is successfully
// confirmed against the payment signal.  It carries enough for
// downstream consumers to log, notify or feed analytics without
// querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	UserID           uint64   `json:"user_id"`
	EventID          uint64   `json:"event_id"`
	SeatIDs          []uint64 `json:"seat_ids"`
	FinalAmountCents uint32   `json:"final_amount_cents"`
	PaymentID        string   `json:"payment_id"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
