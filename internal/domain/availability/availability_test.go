package availability

import (
	"testing"
	"time"

	"loft/internal/domain/pricing"

	"github.com/stretchr/testify/assert"
)

func TestDayStatus(t *testing.T) {
	id := int64(42)

	assert.Equal(t, DayFree, Day{}.Status())
	assert.Equal(t, DayPartial, Day{Afternoon: SlotState{BookingID: &id}}.Status())
	assert.Equal(t, DayPartial, Day{Evening: SlotState{BookingID: &id}}.Status())
	assert.Equal(t, DayFull, Day{
		Afternoon: SlotState{BookingID: &id},
		Evening:   SlotState{BookingID: &id},
	}.Status())
}

func TestDaySlot(t *testing.T) {
	id := int64(7)
	d := Day{Evening: SlotState{BookingID: &id}}

	assert.False(t, d.Slot(pricing.SlotAfternoon).Occupied())
	assert.True(t, d.Slot(pricing.SlotEvening).Occupied())
}

func TestTruncate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2025, 12, 25, 23, 30, 12, 999, loc)

	got := Truncate(in)
	assert.Equal(t, time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), got)
}

func TestSlotTakenError(t *testing.T) {
	err := &SlotTakenError{
		Date:     time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
		Slot:     pricing.SlotEvening,
		HolderID: 9,
	}
	assert.Contains(t, err.Error(), "2025-12-25")
	assert.Contains(t, err.Error(), "booking 9")
}
