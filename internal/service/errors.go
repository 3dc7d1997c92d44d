// Package service implements the seat-inventory concurrency core: hold
// acquisition and release, the booking lifecycle and the expiry reaper.
// Each operation runs as one transactional unit of work against the
// database; there is no shared in-process mutable state for seat or
// booking data.
package service

import "fmt"

// ValidationError reports malformed input or a business rule the caller
// broke (limit exceeded, holds lapsed, nothing eligible to extend).
// Never worth an automatic retry; handlers translate it into a 4xx
// response with the message intact.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a lost race: seats grabbed by a concurrent
// request, or a stale optimistic-lock version on a booking.  Safe for
// the caller to retry after re-reading current state.  When seat
// availability was the cause, UnavailableSeatIDs names the offenders.
type ConflictError struct {
	Message            string
	UnavailableSeatIDs []uint64
}

func (e *ConflictError) Error() string { return e.Message }
