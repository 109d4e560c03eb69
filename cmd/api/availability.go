package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"loft/internal/domain/availability"
	"loft/internal/domain/pricing"

	"github.com/go-chi/chi/v5"
)

// availabilityDay is the public calendar view of a ledger day. It exposes
// which slots are taken but never who holds them.
type availabilityDay struct {
	Date          string                 `json:"date"`
	Status        availability.DayStatus `json:"status"`
	AfternoonFree bool                   `json:"afternoon_free"`
	EveningFree   bool                   `json:"evening_free"`
}

// GetAvailability godoc
//
//	@Summary		Get venue availability
//	@Description	Returns the free, partial or full state for each date in the range. Public, booking IDs are never exposed.
//	@Tags			availability
//	@Accept			json
//	@Produce		json
//	@Param			from	query		string	true	"Range start (YYYY-MM-DD)"
//	@Param			to		query		string	true	"Range end, inclusive (YYYY-MM-DD)"
//	@Success		200		{array}		availabilityDay
//	@Failure		400		{object}	error
//	@Router			/availability [get]
func (app *application) getAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("from query parameter must be formatted as %s", dateLayout))
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("to query parameter must be formatted as %s", dateLayout))
		return
	}
	if to.Before(from) {
		app.badRequestResponse(w, r, fmt.Errorf("to must not be before from"))
		return
	}

	days, err := app.store.Availability.GetRange(r.Context(), from, to)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	out := make([]availabilityDay, 0, len(days))
	for _, d := range days {
		out = append(out, availabilityDay{
			Date:          d.Date.Format(dateLayout),
			Status:        d.Status(),
			AfternoonFree: !d.Afternoon.Occupied(),
			EveningFree:   !d.Evening.Occupied(),
		})
	}

	if err := app.jsonResponse(w, http.StatusOK, out); err != nil {
		app.internalServerError(w, r, err)
	}
}

// FreeSlot godoc
//
//	@Summary		Free a claimed slot
//	@Description	Releases a slot held by an approved booking, for corrections after an off-platform cancellation. The booking record itself is left as is.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			date	path	string	true	"Event date (YYYY-MM-DD)"
//	@Param			slot	path	string	true	"Slot (afternoon or evening)"
//	@Success		204
//	@Failure		400	{object}	error
//	@Failure		404	{object}	error	"No booking holds the slot"
//	@Security		ApiKeyAuth
//	@Router			/admin/availability/{date}/{slot} [delete]
func (app *application) freeSlotHandler(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateLayout, chi.URLParam(r, "date"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("date must be formatted as %s", dateLayout))
		return
	}

	slot := pricing.Slot(chi.URLParam(r, "slot"))
	if !slot.Valid() {
		app.badRequestResponse(w, r, pricing.ErrInvalidSlot)
		return
	}

	day, err := app.store.Availability.GetDay(r.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrDayNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	state := day.Slot(slot)
	if !state.Occupied() {
		app.notFoundResponse(w, r, fmt.Errorf("no booking holds the %s slot on %s", slot, chi.URLParam(r, "date")))
		return
	}

	if err := app.store.Availability.ReleaseSlot(r.Context(), date, slot, *state.BookingID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
