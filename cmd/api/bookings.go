package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"loft/internal/domain/accesscontrol"
	"loft/internal/domain/availability"
	"loft/internal/domain/bookings"
	"loft/internal/domain/pricing"
	"loft/internal/mailer"
	"loft/internal/notifications"
	"loft/internal/params"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

// QuotePayload is the pricing request both the public quote endpoint and the
// booking form submit. Legacy clients send the booleans, newer ones send
// product selections; either works.
type QuotePayload struct {
	EventDate    string              `json:"event_date" validate:"required"`
	Slot         string              `json:"slot" validate:"required,slot"`
	Guests       int                 `json:"guests" validate:"required,min=1,max=200"`
	ExtraHours   int                 `json:"extra_hours" validate:"min=0,max=6"`
	Karaoke      bool                `json:"karaoke"`
	Photographer bool                `json:"photographer"`
	Food         bool                `json:"food"`
	Drinks       bool                `json:"drinks"`
	Snacks       bool                `json:"snacks"`
	Selections   []pricing.Selection `json:"selections"`
}

func (p QuotePayload) toggles() pricing.Toggles {
	return pricing.Toggles{
		Karaoke:      p.Karaoke,
		Photographer: p.Photographer,
		Food:         p.Food,
		Drinks:       p.Drinks,
		Snacks:       p.Snacks,
	}
}

// CreateBookingPayload extends the quote payload with the total the client
// displayed to the customer. The server recomputes and rejects on mismatch.
type CreateBookingPayload struct {
	QuotePayload
	TotalPrice int `json:"total_price" validate:"min=0"`
}

// Quote godoc
//
//	@Summary		Compute a price quote
//	@Description	Computes the price for a prospective booking against the current catalog and rate card. Public, no account needed.
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		QuotePayload	true	"Quote request"
//	@Success		200		{object}	pricing.Quote
//	@Failure		400		{object}	error
//	@Router			/quote [post]
func (app *application) quoteHandler(w http.ResponseWriter, r *http.Request) {
	var payload QuotePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	products, rates, err := app.store.Catalog.Snapshot(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	quote, err := pricing.ComputeQuote(pricing.QuoteInput{
		Slot:       pricing.Slot(payload.Slot),
		Guests:     payload.Guests,
		ExtraHours: payload.ExtraHours,
		Toggles:    payload.toggles(),
		Selections: payload.Selections,
		Catalog:    products,
		Rates:      rates,
	})
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, quote); err != nil {
		app.internalServerError(w, r, err)
	}
}

// CreateBooking godoc
//
//	@Summary		Request a booking
//	@Description	Creates a pending booking for the authenticated user. The slot stays free until staff approve the request.
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateBookingPayload	true	"Booking request"
//	@Success		201		{object}	bookings.Booking
//	@Failure		400		{object}	error	"Invalid payload, stale price or date outside the bookable window"
//	@Failure		401		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings [post]
func (app *application) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload CreateBookingPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	eventDate, err := time.Parse(dateLayout, payload.EventDate)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("event_date must be formatted as %s", dateLayout))
		return
	}

	in := bookings.CreateInput{
		CustomerID:     user.ID,
		CustomerName:   user.FirstName + " " + user.LastName,
		CustomerEmail:  user.Email,
		EventDate:      eventDate,
		Slot:           pricing.Slot(payload.Slot),
		Guests:         payload.Guests,
		ExtraHours:     payload.ExtraHours,
		Toggles:        payload.toggles(),
		Selections:     payload.Selections,
		SubmittedTotal: payload.TotalPrice,
	}
	if user.Phone != "" {
		phone := user.Phone
		in.CustomerPhone = &phone
	}

	booking, err := app.bookings.Create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrDateUnavailable), errors.Is(err, pricing.ErrPriceMismatch):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, pricing.ErrInvalidSlot), errors.Is(err, pricing.ErrUnknownProduct),
			errors.Is(err, pricing.ErrInvalidGuests), errors.Is(err, pricing.ErrInvalidHours):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	notifications.CallAsync(func(ctx context.Context) error {
		return notifications.NotifyStaffOfRequest(ctx, app.push, app.store,
			booking.Reference, booking.EventDate.Format(dateLayout), string(booking.Slot))
	}, "NotifyStaffOfBookingRequest")

	app.sendBookingMail(mailer.BookingReceivedTemplate, booking)

	if err := app.jsonResponse(w, http.StatusCreated, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// MyBookings godoc
//
//	@Summary		List my bookings
//	@Description	Lists the authenticated user's bookings, newest first
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status (pending, approved, declined)"
//	@Param			page	query		int		false	"Page number"
//	@Param			limit	query		int		false	"Page size"
//	@Success		200		{array}		bookings.Booking
//	@Failure		401		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings/mine [get]
func (app *application) myBookingsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	p := params.ParsePagination(r.URL.Query())

	filter := bookings.Filter{Page: p.Page, Limit: p.Limit}
	if s := r.URL.Query().Get("status"); s != "" {
		status := bookings.Status(s)
		if status != bookings.StatusPending && status != bookings.StatusApproved && status != bookings.StatusDeclined {
			app.badRequestResponse(w, r, fmt.Errorf("unknown status %q", s))
			return
		}
		filter.Status = &status
	}

	list, err := app.store.Bookings.ListByCustomer(r.Context(), user.ID, filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetBooking godoc
//
//	@Summary		Get a booking
//	@Description	Returns one booking. Customers can only see their own; staff with a decision role can see any.
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		403			{object}	error
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings/{bookingID} [get]
func (app *application) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.store.Bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if booking.CustomerID != user.ID {
		ok, err := app.store.AccessControl.HasAnyRole(r.Context(), user.ID, accesscontrol.DecisionRoles...)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if !ok {
			app.forbiddenResponse(w, r)
			return
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// AdminListBookings godoc
//
//	@Summary		List bookings for a date
//	@Description	Lists every booking requested for a date, optionally filtered by status. Staff only.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			date	query		string	true	"Event date (YYYY-MM-DD)"
//	@Param			status	query		string	false	"Filter by status"
//	@Success		200		{array}		bookings.Booking
//	@Failure		400		{object}	error
//	@Failure		403		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/bookings [get]
func (app *application) adminListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("date query parameter must be formatted as %s", dateLayout))
		return
	}

	var status *bookings.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := bookings.Status(s)
		if st != bookings.StatusPending && st != bookings.StatusApproved && st != bookings.StatusDeclined {
			app.badRequestResponse(w, r, fmt.Errorf("unknown status %q", s))
			return
		}
		status = &st
	}

	list, err := app.store.Bookings.ListForDate(r.Context(), date, status)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ApproveBooking godoc
//
//	@Summary		Approve a booking
//	@Description	Approves a pending booking and claims its slot. The first approval for a slot wins; later ones get a 409 naming the winner. A payment can be recorded in the same call.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			bookingID	path		int						true	"Booking ID"
//	@Param			payment		body		bookings.PaymentInfo	false	"Optional payment recorded together with the approval"
//	@Success		200			{object}	bookings.Booking
//	@Failure		400			{object}	error
//	@Failure		403			{object}	error
//	@Failure		409			{object}	error	"Slot already booked or booking already decided"
//	@Security		ApiKeyAuth
//	@Router			/admin/bookings/{bookingID}/approve [post]
func (app *application) approveBookingHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payment *bookings.PaymentInfo
	if r.ContentLength > 0 {
		var payload bookings.PaymentInfo
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		payment = &payload
	}

	booking, err := app.bookings.Approve(r.Context(), user.ID, bookingID, payment)
	if err != nil {
		app.bookingTransitionError(w, r, err)
		return
	}

	notifications.CallAsync(func(ctx context.Context) error {
		return notifications.SendBookingNotification(ctx, app.push, app.store,
			booking.CustomerID, notifications.BookingApproved, booking.Reference)
	}, "SendBookingApproved")

	app.sendBookingMail(mailer.BookingConfirmedTemplate, booking)

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// DeclineBooking godoc
//
//	@Summary		Decline a booking
//	@Description	Declines a pending booking. The availability ledger is untouched; a pending request never held the slot.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		403			{object}	error
//	@Failure		409			{object}	error	"Booking already decided"
//	@Security		ApiKeyAuth
//	@Router			/admin/bookings/{bookingID}/decline [post]
func (app *application) declineBookingHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.bookings.Decline(r.Context(), user.ID, bookingID)
	if err != nil {
		app.bookingTransitionError(w, r, err)
		return
	}

	notifications.CallAsync(func(ctx context.Context) error {
		return notifications.SendBookingNotification(ctx, app.push, app.store,
			booking.CustomerID, notifications.BookingDeclined, booking.Reference)
	}, "SendBookingDeclined")

	app.sendBookingMail(mailer.BookingDeclinedTemplate, booking)

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// MarkBookingPaid godoc
//
//	@Summary		Record a payment
//	@Description	Marks an approved booking as paid with the given method
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			bookingID	path		int						true	"Booking ID"
//	@Param			payment		body		bookings.PaymentInfo	true	"Payment method"
//	@Success		200			{object}	bookings.Booking
//	@Failure		400			{object}	error	"Missing payment method"
//	@Failure		403			{object}	error
//	@Failure		409			{object}	error	"Booking not approved or already paid"
//	@Security		ApiKeyAuth
//	@Router			/admin/bookings/{bookingID}/payment [post]
func (app *application) markBookingPaidHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payment bookings.PaymentInfo
	if err := readJSON(w, r, &payment); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.bookings.MarkPaid(r.Context(), user.ID, bookingID, payment)
	if err != nil {
		app.bookingTransitionError(w, r, err)
		return
	}

	notifications.CallAsync(func(ctx context.Context) error {
		return notifications.SendBookingNotification(ctx, app.push, app.store,
			booking.CustomerID, notifications.BookingPaid, booking.Reference)
	}, "SendBookingPaid")

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// bookingTransitionError maps state machine errors onto HTTP responses so the
// three decision handlers stay uniform.
func (app *application) bookingTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	var slotTaken *availability.SlotTakenError
	switch {
	case errors.As(err, &slotTaken):
		app.conflictResponse(w, r, err)
	case errors.Is(err, bookings.ErrInvalidTransition):
		app.conflictResponse(w, r, err)
	case errors.Is(err, bookings.ErrMethodRequired):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, bookings.ErrForbidden):
		app.forbiddenResponse(w, r)
	case errors.Is(err, bookings.ErrNotFound):
		app.notFoundResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

// sendBookingMail mails the booking's customer off the request path. A mail
// failure never fails the request that triggered it.
func (app *application) sendBookingMail(template string, b *bookings.Booking) {
	go func() {
		data := map[string]any{
			"Username":  b.CustomerName,
			"Reference": b.Reference,
			"EventDate": b.EventDate.Format(dateLayout),
			"Slot":      string(b.Slot),
			"Guests":    b.Guests,
			"Total":     b.TotalPrice,
		}
		if _, err := app.mailer.Send(template, b.CustomerName, b.CustomerEmail, data); err != nil {
			app.logger.Errorw("failed to send booking email", "template", template, "reference", b.Reference, "error", err)
		}
	}()
}
