// Package repository implements data access for events, seats, bookings
// and payments on top of database/sql.  Sentinel errors declared here
// are shared across repositories so higher layers can distinguish
// failure scenarios with errors.Is instead of inspecting SQL errors.
package repository

import "errors"

// ErrEventNotFound is returned when the requested event does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when the requested booking does not
// exist.  Handlers should translate this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as cancelling another user's booking.
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
