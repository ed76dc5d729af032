package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyBookingDelta(t *testing.T) {
	slot := &AvailabilitySlot{MaxBookings: 2, CurrentBookings: 0, IsAvailable: true}

	slot.ApplyBookingDelta(1)
	assert.Equal(t, 1, slot.CurrentBookings)
	assert.False(t, slot.IsBooked)
	assert.True(t, slot.IsAvailable)

	slot.ApplyBookingDelta(1)
	assert.Equal(t, 2, slot.CurrentBookings)
	assert.True(t, slot.IsBooked)
	assert.False(t, slot.IsAvailable)

	slot.ApplyBookingDelta(-1)
	assert.Equal(t, 1, slot.CurrentBookings)
	assert.False(t, slot.IsBooked)
	assert.True(t, slot.IsAvailable)
}

func TestApplyBookingDeltaClampsAtZero(t *testing.T) {
	slot := &AvailabilitySlot{MaxBookings: 3, CurrentBookings: 0}

	slot.ApplyBookingDelta(-1)
	assert.Equal(t, 0, slot.CurrentBookings)
	assert.True(t, slot.IsAvailable)
}

func TestApplyBookingDeltaClampsAtMax(t *testing.T) {
	slot := &AvailabilitySlot{MaxBookings: 1, CurrentBookings: 1}

	slot.ApplyBookingDelta(1)
	assert.Equal(t, 1, slot.CurrentBookings)
	assert.True(t, slot.IsBooked)
	assert.False(t, slot.IsAvailable)
}

func TestApplyBookingDeltaFlagsAlwaysConsistent(t *testing.T) {
	slot := &AvailabilitySlot{MaxBookings: 2}

	deltas := []int{1, 1, -1, 1, -1, -1, -1, 1}
	for _, d := range deltas {
		slot.ApplyBookingDelta(d)
		assert.GreaterOrEqual(t, slot.CurrentBookings, 0)
		assert.LessOrEqual(t, slot.CurrentBookings, slot.MaxBookings)
		assert.Equal(t, slot.CurrentBookings >= slot.MaxBookings, slot.IsBooked)
		assert.Equal(t, !slot.IsBooked, slot.IsAvailable)
	}
}

func TestAvailableSpots(t *testing.T) {
	slot := &AvailabilitySlot{MaxBookings: 5, CurrentBookings: 2}
	assert.Equal(t, 3, slot.AvailableSpots())

	slot.CurrentBookings = 5
	assert.Equal(t, 0, slot.AvailableSpots())
}

func TestContainsIncludesBoundaries(t *testing.T) {
	start, _ := ParseTimeOfDay("09:00")
	end, _ := ParseTimeOfDay("11:00")
	slot := &AvailabilitySlot{StartTime: start, EndTime: end}

	ten, _ := ParseTimeOfDay("10:00")
	noon, _ := ParseTimeOfDay("12:00")

	assert.True(t, slot.Contains(start))
	assert.True(t, slot.Contains(end))
	assert.True(t, slot.Contains(ten))
	assert.False(t, slot.Contains(noon))
}
