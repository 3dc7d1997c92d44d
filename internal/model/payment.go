package model

import "time"

// Payment records the trusted confirmation signal received from the
// payment gateway.  Exactly one payment row exists per CONFIRMED
// booking; it is written in the same transaction that flips the booking
// to CONFIRMED.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – booking this payment settles (one-to-one).
//  GatewayRef  – external gateway reference for the charge.
//  AmountCents – amount charged; equals the booking's final amount.
//  Status      – gateway-reported status (CAPTURED on confirm).
//  Method      – payment method (card, wallet, ...).
//  CreatedAt   – creation timestamp.
type Payment struct {
	ID          uint64    `json:"id"`           // payments.id
	BookingID   uint64    `json:"booking_id"`   // payments.booking_id
	GatewayRef  string    `json:"gateway_ref"`  // payments.gateway_ref
	AmountCents uint32    `json:"amount_cents"` // payments.amount_cents
	Status      string    `json:"status"`       // payments.status
	Method      string    `json:"method"`       // payments.method
	CreatedAt   time.Time `json:"created_at"`   // payments.created_at
}
