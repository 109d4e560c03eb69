package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrPriceMismatch means the client-submitted total disagrees with the
	// server computation for the same parameters.
	ErrPriceMismatch = errors.New("submitted total does not match computed price")

	ErrUnknownProduct = errors.New("selected product is not in the catalog")
	ErrInvalidGuests  = errors.New("guest count must be positive")
	ErrInvalidHours   = errors.New("extra hours must not be negative")
	ErrInvalidSlot    = errors.New("slot must be afternoon or evening")
)

// ResolvedLine is a selection joined with its catalog product.
type ResolvedLine struct {
	Product  Product
	Quantity int
}

// ResolveSelections joins selections against the catalog snapshot and
// enforces package exclusivity: within a package key only the most recently
// selected product survives, earlier ones are silently dropped. Products not
// offered for the slot are dropped as well. Unknown product IDs are an error.
func ResolveSelections(selections []Selection, catalog []Product, slot Slot) ([]ResolvedLine, error) {
	byID := make(map[int64]Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	var lines []ResolvedLine
	activePackage := make(map[string]int) // package key -> index into lines

	for _, sel := range selections {
		p, ok := byID[sel.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: id=%d", ErrUnknownProduct, sel.ProductID)
		}
		if !p.OfferedFor(slot) {
			continue
		}

		qty := sel.Quantity
		if qty < 1 {
			qty = 1
		}
		line := ResolvedLine{Product: p, Quantity: qty}

		if p.PackageKey != nil {
			if i, taken := activePackage[*p.PackageKey]; taken {
				// later selection replaces the earlier one for this package
				lines[i] = line
				continue
			}
			activePackage[*p.PackageKey] = len(lines)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ComputeQuote computes the total a booking owes. It is pure: same input,
// same quote, no side effects.
func ComputeQuote(in QuoteInput) (Quote, error) {
	if !in.Slot.Valid() {
		return Quote{}, ErrInvalidSlot
	}
	if in.Guests < 1 {
		return Quote{}, ErrInvalidGuests
	}
	if in.ExtraHours < 0 {
		return Quote{}, ErrInvalidHours
	}

	// Extra hours only exist for evening bookings. Normalizing here keeps a
	// quote and the later submission check evaluating the same input.
	if in.Slot == SlotAfternoon {
		in.ExtraHours = 0
	}

	lines, err := ResolveSelections(in.Selections, in.Catalog, in.Slot)
	if err != nil {
		return Quote{}, err
	}

	var q Quote
	add := func(label string, amount int) {
		if amount == 0 {
			return
		}
		q.Lines = append(q.Lines, Line{Label: label, Amount: amount})
		q.Subtotal += amount
	}

	// Base rate.
	switch in.Slot {
	case SlotAfternoon:
		if in.Guests > LargeGroupCutoff || in.Toggles.Karaoke || hasBundleProduct(lines) {
			add("afternoon with karaoke", in.Rates.AfternoonWithKaraoke)
		} else {
			add("afternoon", in.Rates.AfternoonWithoutKaraoke)
		}
	case SlotEvening:
		add("loft rental", in.Rates.EveningPerGuest*in.Guests)
	}

	// Legacy per-guest add-ons apply to both slots.
	if in.Toggles.Food {
		add("food", in.Rates.FoodPerGuest*in.Guests)
	}
	if in.Toggles.Drinks {
		add("drinks", in.Rates.DrinksPerGuest*in.Guests)
	}
	if in.Toggles.Snacks {
		add("snacks", in.Rates.SnacksPerGuest*in.Guests)
	}

	if in.ExtraHours > 0 {
		add("extra hours", in.Rates.ExtraHourPerGuest*in.ExtraHours*in.Guests)
	}

	if in.Toggles.Photographer {
		add("photographer", in.Rates.PhotographerFlat)
	}

	// Catalog products.
	for _, l := range lines {
		if in.Slot == SlotAfternoon && l.Product.Key == BundleProductKey {
			// already folded into the afternoon base rate
			continue
		}
		switch l.Product.Unit {
		case UnitPerGuest:
			add(l.Product.Name, l.Product.Price*in.Guests)
		case UnitPerHour:
			add(l.Product.Name, l.Product.Price*in.ExtraHours)
		default: // per_event
			add(l.Product.Name, l.Product.Price*l.Quantity)
		}
	}

	q.Total = q.Subtotal
	if q.Total < in.Rates.MinimumTotal {
		q.Total = in.Rates.MinimumTotal
		q.FloorApplied = true
	}
	return q, nil
}

// Validate recomputes the quote and rejects a client-submitted total that
// disagrees with it.
func Validate(submittedTotal int, in QuoteInput) error {
	q, err := ComputeQuote(in)
	if err != nil {
		return err
	}
	if q.Total != submittedTotal {
		return fmt.Errorf("%w: submitted=%d computed=%d", ErrPriceMismatch, submittedTotal, q.Total)
	}
	return nil
}

func hasBundleProduct(lines []ResolvedLine) bool {
	for _, l := range lines {
		if l.Product.Key == BundleProductKey {
			return true
		}
	}
	return false
}
