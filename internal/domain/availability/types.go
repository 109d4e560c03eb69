package availability

import (
	"fmt"
	"time"

	"loft/internal/domain/pricing"
)

// SlotState is one bookable window on a given date. BookingID is set only
// while an approved booking holds the slot.
type SlotState struct {
	BookingID *int64 `json:"booking_id,omitempty"`
}

func (s SlotState) Occupied() bool { return s.BookingID != nil }

// Day is the ledger row for one calendar date.
type Day struct {
	Date      time.Time `json:"date"`
	Afternoon SlotState `json:"afternoon"`
	Evening   SlotState `json:"evening"`
}

// DayStatus is the calendar rendering hint derived from a Day.
type DayStatus string

const (
	DayFree    DayStatus = "free"
	DayPartial DayStatus = "partial"
	DayFull    DayStatus = "full"
)

// Status collapses the two slots into the tri-state the calendar renders.
func (d Day) Status() DayStatus {
	switch {
	case d.Afternoon.Occupied() && d.Evening.Occupied():
		return DayFull
	case d.Afternoon.Occupied() || d.Evening.Occupied():
		return DayPartial
	default:
		return DayFree
	}
}

// Slot returns the state for the given window.
func (d Day) Slot(slot pricing.Slot) SlotState {
	if slot == pricing.SlotAfternoon {
		return d.Afternoon
	}
	return d.Evening
}

// SlotTakenError reports an approval that lost the race for a slot,
// carrying the holder so the operator can resolve the conflict manually.
type SlotTakenError struct {
	Date     time.Time
	Slot     pricing.Slot
	HolderID int64
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot %s on %s is already held by booking %d",
		e.Slot, e.Date.Format("2006-01-02"), e.HolderID)
}

// Truncate normalizes a timestamp to the UTC calendar date the ledger keys on.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
