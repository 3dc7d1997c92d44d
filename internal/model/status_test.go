package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusSetsAreClosed(t *testing.T) {
	for _, s := range []SeatStatus{SeatAvailable, SeatHeld, SeatBooked, SeatBlocked} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, SeatStatus("RESERVED").Valid())
	assert.False(t, SeatStatus("").Valid())

	for _, b := range []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingExpired} {
		assert.True(t, b.Valid(), b)
	}
	assert.False(t, BookingStatus("PAID").Valid())

	for _, e := range []EventStatus{EventOnSale, EventClosed, EventCancelled} {
		assert.True(t, e.Valid(), e)
	}
	assert.False(t, EventStatus("DRAFT").Valid())
}

func TestEventBookable(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&Event{Status: EventOnSale, StartsAt: future}).Bookable(now))
	assert.False(t, (&Event{Status: EventClosed, StartsAt: future}).Bookable(now))
	assert.False(t, (&Event{Status: EventCancelled, StartsAt: future}).Bookable(now))
	assert.False(t, (&Event{Status: EventOnSale, StartsAt: past}).Bookable(now), "started events are not bookable")
	assert.False(t, (&Event{Status: EventOnSale, StartsAt: now}).Bookable(now), "start boundary is exclusive")
}
