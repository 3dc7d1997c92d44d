package model

// SeatStatus enumerates every allocation state a seat can be in.  The
// set is closed: persistence and services reject any other value, so a
// consumer that switches over SeatStatus handles all transitions
// explicitly instead of silently ignoring an unknown state.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // free to be held
	SeatHeld      SeatStatus = "HELD"      // temporarily claimed by a user, expires at held_until
	SeatBooked    SeatStatus = "BOOKED"    // captured by a confirmed booking
	SeatBlocked   SeatStatus = "BLOCKED"   // withheld from sale (house seats, broken seats)
)

// Valid reports whether s is one of the recognised seat states.
func (s SeatStatus) Valid() bool {
	switch s {
	case SeatAvailable, SeatHeld, SeatBooked, SeatBlocked:
		return true
	}
	return false
}

// BookingStatus enumerates the lifecycle states of a booking.
// CONFIRMED, CANCELLED and EXPIRED are terminal with one exception:
// a CONFIRMED booking may still be cancelled before the event starts.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// Valid reports whether b is one of the recognised booking states.
func (b BookingStatus) Valid() bool {
	switch b {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingExpired:
		return true
	}
	return false
}

// EventStatus enumerates the sale states of an event.  Only ON_SALE
// events accept new holds and bookings.
type EventStatus string

const (
	EventOnSale    EventStatus = "ON_SALE"
	EventClosed    EventStatus = "CLOSED"
	EventCancelled EventStatus = "CANCELLED"
)

// Valid reports whether e is one of the recognised event states.
func (e EventStatus) Valid() bool {
	switch e {
	case EventOnSale, EventClosed, EventCancelled:
		return true
	}
	return false
}
