package bookings

import (
	"time"

	"loft/internal/domain/pricing"
)

// Status is derived from the decision timestamps, never stored on its own.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Booking is one customer's request for the venue.
type Booking struct {
	ID            int64               `json:"id"`
	Reference     string              `json:"reference"`
	CustomerID    int64               `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	CustomerPhone *string             `json:"customer_phone,omitempty"`
	EventDate     time.Time           `json:"event_date"`
	Slot          pricing.Slot        `json:"slot"`
	Guests        int                 `json:"guests"`
	ExtraHours    int                 `json:"extra_hours"`
	Selections    []pricing.Selection `json:"selections"`
	TotalPrice    int                 `json:"total_price"`

	// Legacy toggles kept for old clients; canonical state is Selections.
	Karaoke      bool `json:"karaoke"`
	Photographer bool `json:"photographer"`
	Food         bool `json:"food"`
	Drinks       bool `json:"drinks"`
	Snacks       bool `json:"snacks"`

	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	DeclinedAt    *time.Time `json:"declined_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
}

// Status derives the decision state from the timestamps.
func (b *Booking) Status() Status {
	switch {
	case b.DeclinedAt != nil:
		return StatusDeclined
	case b.ApprovedAt != nil:
		return StatusApproved
	default:
		return StatusPending
	}
}

// Paid reports the orthogonal paid sub-state, reachable only from approved.
func (b *Booking) Paid() bool { return b.PaidAt != nil }

// Toggles bundles the legacy flags for the pricing engine.
func (b *Booking) Toggles() pricing.Toggles {
	return pricing.Toggles{
		Karaoke:      b.Karaoke,
		Photographer: b.Photographer,
		Food:         b.Food,
		Drinks:       b.Drinks,
		Snacks:       b.Snacks,
	}
}

// Filter narrows booking listings.
type Filter struct {
	Status *Status
	Page   int
	Limit  int
}

func (f Filter) offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.Limit
}

// PaymentInfo records how an approved booking was settled.
type PaymentInfo struct {
	Method string `json:"method"`
}
