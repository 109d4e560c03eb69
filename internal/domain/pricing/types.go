package pricing

// Slot is one of the two bookable windows of a day.
type Slot string

const (
	SlotAfternoon Slot = "afternoon"
	SlotEvening   Slot = "evening"
)

func (s Slot) Valid() bool {
	return s == SlotAfternoon || s == SlotEvening
}

// Unit describes how a product price scales.
type Unit string

const (
	UnitPerGuest Unit = "per_guest"
	UnitPerEvent Unit = "per_event"
	UnitPerHour  Unit = "per_hour"
)

// BundleProductKey marks the product that is folded into the afternoon
// flat rate instead of being billed as a separate line.
const BundleProductKey = "karaoke"

// LargeGroupCutoff is the guest count above which an afternoon booking is
// always billed at the bundle rate, whatever the customer toggled.
const LargeGroupCutoff = 25

// Product is a priced catalog line item.
type Product struct {
	ID               int64   `json:"id"`
	Key              string  `json:"key"`
	Name             string  `json:"name"`
	Price            int     `json:"price"`
	Unit             Unit    `json:"unit"`
	Category         string  `json:"category"`
	PackageKey       *string `json:"package_key,omitempty"`
	DefaultInPackage bool    `json:"default_in_package"`
	Visible          bool    `json:"visible"`
	SortOrder        int     `json:"sort_order"`
	// Slots restricts when the product may be chosen. Empty means both.
	Slots []Slot `json:"slots,omitempty"`
}

// OfferedFor reports whether the product may be chosen for the given slot.
func (p Product) OfferedFor(slot Slot) bool {
	if len(p.Slots) == 0 {
		return true
	}
	for _, s := range p.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// RateCard is the legacy flat pricing table. The product catalog supersedes
// it for add-ons, but base rates and the minimum floor still live here.
type RateCard struct {
	MinimumTotal            int `json:"minimum_total"`
	EveningPerGuest         int `json:"evening_per_guest"`
	AfternoonWithKaraoke    int `json:"afternoon_with_karaoke"`
	AfternoonWithoutKaraoke int `json:"afternoon_without_karaoke"`
	FoodPerGuest            int `json:"food_per_guest"`
	DrinksPerGuest          int `json:"drinks_per_guest"`
	SnacksPerGuest          int `json:"snacks_per_guest"`
	ExtraHourPerGuest       int `json:"extra_hour_per_guest"`
	PhotographerFlat        int `json:"photographer_flat"`
}

// Selection is one chosen product on a booking.
type Selection struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity,omitempty"`
}

// Toggles are the legacy boolean add-ons priced straight off the rate card.
type Toggles struct {
	Karaoke      bool `json:"karaoke"`
	Photographer bool `json:"photographer"`
	Food         bool `json:"food"`
	Drinks       bool `json:"drinks"`
	Snacks       bool `json:"snacks"`
}

// QuoteInput bundles everything a quote depends on. The catalog and rate
// card are explicit snapshots; the engine never reads ambient state.
type QuoteInput struct {
	Slot       Slot
	Guests     int
	ExtraHours int
	Toggles    Toggles
	Selections []Selection
	Catalog    []Product
	Rates      RateCard
}

// Line is one contributing amount in a quote, for display.
type Line struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// Quote is the result of a price computation.
type Quote struct {
	Subtotal     int    `json:"subtotal"`
	Total        int    `json:"total"`
	FloorApplied bool   `json:"floor_applied"`
	Lines        []Line `json:"lines"`
}
