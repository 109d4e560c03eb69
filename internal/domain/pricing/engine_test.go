package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRates() RateCard {
	return RateCard{
		MinimumTotal:            1000,
		EveningPerGuest:         150,
		AfternoonWithKaraoke:    2500,
		AfternoonWithoutKaraoke: 2000,
		FoodPerGuest:            40,
		DrinksPerGuest:          25,
		SnacksPerGuest:          15,
		ExtraHourPerGuest:       30,
		PhotographerFlat:        800,
	}
}

func strPtr(s string) *string { return &s }

func TestComputeQuote_EveningPerGuestBase(t *testing.T) {
	q, err := ComputeQuote(QuoteInput{
		Slot:   SlotEvening,
		Guests: 20,
		Rates:  testRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3000, q.Total)
	assert.False(t, q.FloorApplied)
}

func TestComputeQuote_AfternoonWithoutKaraoke(t *testing.T) {
	q, err := ComputeQuote(QuoteInput{
		Slot:   SlotAfternoon,
		Guests: 15,
		Rates:  testRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2000, q.Total)
}

func TestComputeQuote_LargeGroupForcesBundle(t *testing.T) {
	// above the cutoff the bundle rate applies no matter what the
	// customer toggled
	for _, karaoke := range []bool{true, false} {
		q, err := ComputeQuote(QuoteInput{
			Slot:    SlotAfternoon,
			Guests:  30,
			Toggles: Toggles{Karaoke: karaoke},
			Rates:   testRates(),
		})
		require.NoError(t, err)
		assert.Equal(t, 2500, q.Total, "karaoke=%v", karaoke)
	}
}

func TestComputeQuote_KaraokeToggleSwitchesAfternoonBase(t *testing.T) {
	q, err := ComputeQuote(QuoteInput{
		Slot:    SlotAfternoon,
		Guests:  10,
		Toggles: Toggles{Karaoke: true},
		Rates:   testRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2500, q.Total)
}

func TestComputeQuote_EveningFlatProduct(t *testing.T) {
	catalog := []Product{
		{ID: 1, Key: "karaoke", Name: "Karaoke", Price: 500, Unit: UnitPerEvent},
	}
	q, err := ComputeQuote(QuoteInput{
		Slot:       SlotEvening,
		Guests:     10,
		Selections: []Selection{{ProductID: 1}},
		Catalog:    catalog,
		Rates:      testRates(),
	})
	require.NoError(t, err)
	// 10 * 150 loft rental + 500 flat
	assert.Equal(t, 2000, q.Total)
}

func TestComputeQuote_AfternoonKaraokeProductNotDoubleBilled(t *testing.T) {
	catalog := []Product{
		{ID: 1, Key: "karaoke", Name: "Karaoke", Price: 500, Unit: UnitPerEvent},
	}
	q, err := ComputeQuote(QuoteInput{
		Slot:       SlotAfternoon,
		Guests:     10,
		Selections: []Selection{{ProductID: 1}},
		Catalog:    catalog,
		Rates:      testRates(),
	})
	require.NoError(t, err)
	// the product flips the base to the bundle rate but must not also be
	// added as its own line
	assert.Equal(t, 2500, q.Total)
}

func TestComputeQuote_ExtraHours(t *testing.T) {
	catalog := []Product{
		{ID: 7, Key: "late_dj", Name: "DJ overtime", Price: 200, Unit: UnitPerHour},
	}
	q, err := ComputeQuote(QuoteInput{
		Slot:       SlotEvening,
		Guests:     10,
		ExtraHours: 3,
		Selections: []Selection{{ProductID: 7}},
		Catalog:    catalog,
		Rates:      testRates(),
	})
	require.NoError(t, err)
	// 1500 loft + 600 per-hour product + 900 extra-hour guest rate
	assert.Equal(t, 1500+600+3*30*10, q.Total)
}

func TestComputeQuote_ExtraHoursIgnoredForAfternoon(t *testing.T) {
	q, err := ComputeQuote(QuoteInput{
		Slot:       SlotAfternoon,
		Guests:     15,
		ExtraHours: 2,
		Rates:      testRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2000, q.Total)
}

func TestComputeQuote_PerHourProductIgnoredForAfternoon(t *testing.T) {
	catalog := []Product{
		{ID: 7, Key: "late_dj", Name: "DJ overtime", Price: 200, Unit: UnitPerHour},
	}
	in := QuoteInput{
		Slot:       SlotAfternoon,
		Guests:     10,
		ExtraHours: 2,
		Selections: []Selection{{ProductID: 7}},
		Catalog:    catalog,
		Rates:      testRates(),
	}
	q, err := ComputeQuote(in)
	require.NoError(t, err)
	assert.Equal(t, 2000, q.Total)

	// the quoted total must survive the submission check unchanged
	assert.NoError(t, Validate(q.Total, in))
}

func TestComputeQuote_PerGuestProduct(t *testing.T) {
	catalog := []Product{
		{ID: 3, Key: "brunch", Name: "Brunch", Price: 35, Unit: UnitPerGuest},
	}
	q, err := ComputeQuote(QuoteInput{
		Slot:       SlotEvening,
		Guests:     12,
		Selections: []Selection{{ProductID: 3}},
		Catalog:    catalog,
		Rates:      testRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 12*150+12*35, q.Total)
}

func TestComputeQuote_MinimumFloor(t *testing.T) {
	q, err := ComputeQuote(QuoteInput{
		Slot:   SlotEvening,
		Guests: 2, // 300 subtotal, well under the floor
		Rates:  testRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 300, q.Subtotal)
	assert.Equal(t, 1000, q.Total)
	assert.True(t, q.FloorApplied)
}

func TestComputeQuote_Deterministic(t *testing.T) {
	in := QuoteInput{
		Slot:       SlotEvening,
		Guests:     18,
		ExtraHours: 1,
		Toggles:    Toggles{Food: true, Drinks: true, Photographer: true},
		Rates:      testRates(),
	}
	first, err := ComputeQuote(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ComputeQuote(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeQuote_PerGuestToggles(t *testing.T) {
	q, err := ComputeQuote(QuoteInput{
		Slot:    SlotAfternoon,
		Guests:  20,
		Toggles: Toggles{Food: true, Snacks: true},
		Rates:   testRates(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2000+20*40+20*15, q.Total)
}

func TestComputeQuote_InvalidInputs(t *testing.T) {
	rates := testRates()

	_, err := ComputeQuote(QuoteInput{Slot: "midnight", Guests: 5, Rates: rates})
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = ComputeQuote(QuoteInput{Slot: SlotEvening, Guests: 0, Rates: rates})
	assert.ErrorIs(t, err, ErrInvalidGuests)

	_, err = ComputeQuote(QuoteInput{Slot: SlotEvening, Guests: 5, ExtraHours: -1, Rates: rates})
	assert.ErrorIs(t, err, ErrInvalidHours)

	_, err = ComputeQuote(QuoteInput{
		Slot:       SlotEvening,
		Guests:     5,
		Selections: []Selection{{ProductID: 999}},
		Rates:      rates,
	})
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestResolveSelections_PackageExclusivity(t *testing.T) {
	catalog := []Product{
		{ID: 1, Key: "menu_basic", Name: "Basic menu", Price: 30, Unit: UnitPerGuest, PackageKey: strPtr("food_package")},
		{ID: 2, Key: "menu_deluxe", Name: "Deluxe menu", Price: 55, Unit: UnitPerGuest, PackageKey: strPtr("food_package")},
		{ID: 3, Key: "photographer", Name: "Photographer", Price: 800, Unit: UnitPerEvent},
	}

	lines, err := ResolveSelections([]Selection{
		{ProductID: 1},
		{ProductID: 3},
		{ProductID: 2}, // replaces the basic menu, keeps the photographer
	}, catalog, SlotEvening)
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.Equal(t, int64(2), lines[0].Product.ID)
	assert.Equal(t, int64(3), lines[1].Product.ID)
}

func TestResolveSelections_SlotRestriction(t *testing.T) {
	catalog := []Product{
		{ID: 1, Key: "daylight_set", Name: "Daylight set", Price: 100, Unit: UnitPerEvent, Slots: []Slot{SlotAfternoon}},
	}
	lines, err := ResolveSelections([]Selection{{ProductID: 1}}, catalog, SlotEvening)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestValidate(t *testing.T) {
	in := QuoteInput{Slot: SlotEvening, Guests: 20, Rates: testRates()}

	require.NoError(t, Validate(3000, in))

	err := Validate(2999, in)
	assert.True(t, errors.Is(err, ErrPriceMismatch))
}
