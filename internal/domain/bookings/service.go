package bookings

import (
	"context"
	"errors"
	"strings"
	"time"

	"loft/internal/domain/accesscontrol"
	"loft/internal/domain/availability"
	"loft/internal/domain/pricing"
)

// CatalogSource supplies the product/rate-card snapshot a pricing decision
// runs against. Every call re-snapshots; the service never caches.
type CatalogSource interface {
	Snapshot(ctx context.Context) ([]pricing.Product, pricing.RateCard, error)
}

// RoleChecker is the authorization predicate (accesscontrol.Store satisfies it).
type RoleChecker interface {
	HasAnyRole(ctx context.Context, userID int64, roles ...accesscontrol.RoleName) (bool, error)
}

// TxRunner binds a booking store and the availability ledger to one
// transaction so the approve transition is atomic (storage.Container
// satisfies it).
type TxRunner interface {
	WithBookingTx(ctx context.Context, fn func(store Store, ledger availability.Store) error) error
}

// Service owns the booking state machine.
type Service struct {
	store   Store
	ledger  availability.Store
	catalog CatalogSource
	roles   RoleChecker
	tx      TxRunner
	refs    *ReferenceEncoder
}

func NewService(store Store, ledger availability.Store, catalog CatalogSource, roles RoleChecker, tx TxRunner, refs *ReferenceEncoder) *Service {
	return &Service{
		store:   store,
		ledger:  ledger,
		catalog: catalog,
		roles:   roles,
		tx:      tx,
		refs:    refs,
	}
}

// CreateInput carries everything a new booking request needs, including the
// total the client displayed, which must match the server computation.
type CreateInput struct {
	CustomerID     int64
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  *string
	EventDate      time.Time
	Slot           pricing.Slot
	Guests         int
	ExtraHours     int
	Toggles        pricing.Toggles
	Selections     []pricing.Selection
	SubmittedTotal int
}

// Create lands a new booking in pending state. It never touches the
// availability ledger; slot conflicts are resolved at approval time.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Booking, error) {
	// Extra hours only exist for evening bookings.
	if in.Slot == pricing.SlotAfternoon {
		in.ExtraHours = 0
	}

	// The date must be inside the seeded booking window. A fully occupied
	// slot is still accepted here: two pending requests may coexist and the
	// conflict is resolved when staff approve one of them.
	if _, err := s.ledger.GetDay(ctx, in.EventDate); err != nil {
		if errors.Is(err, availability.ErrDayNotFound) {
			return nil, ErrDateUnavailable
		}
		return nil, err
	}

	products, rates, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	toggles, selections := foldLegacyFlags(in.Toggles, in.Selections, products)

	quoteIn := pricing.QuoteInput{
		Slot:       in.Slot,
		Guests:     in.Guests,
		ExtraHours: in.ExtraHours,
		Toggles:    toggles,
		Selections: selections,
		Catalog:    products,
		Rates:      rates,
	}
	if err := pricing.Validate(in.SubmittedTotal, quoteIn); err != nil {
		return nil, err
	}

	b := &Booking{
		CustomerID:    in.CustomerID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		EventDate:     availability.Truncate(in.EventDate),
		Slot:          in.Slot,
		Guests:        in.Guests,
		ExtraHours:    in.ExtraHours,
		Selections:    selections,
		TotalPrice:    in.SubmittedTotal,
		Karaoke:       toggles.Karaoke,
		Photographer:  toggles.Photographer,
		Food:          toggles.Food,
		Drinks:        toggles.Drinks,
		Snacks:        toggles.Snacks,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}

	ref, err := s.refs.Encode(b.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetReference(ctx, b.ID, ref); err != nil {
		return nil, err
	}
	b.Reference = ref

	return b, nil
}

// Approve moves a pending booking to approved and claims its slot in the
// ledger, atomically. The first approval for a slot wins; later ones fail
// with availability.SlotTakenError and leave the booking pending.
func (s *Service) Approve(ctx context.Context, actorID, bookingID int64, payment *PaymentInfo) (*Booking, error) {
	if err := s.requireRole(ctx, actorID, accesscontrol.DecisionRoles...); err != nil {
		return nil, err
	}

	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status() != StatusPending {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	var paidAt *time.Time
	var method *string
	if payment != nil {
		m := strings.TrimSpace(payment.Method)
		if m == "" {
			return nil, ErrMethodRequired
		}
		paidAt = &now
		method = &m
	}

	err = s.tx.WithBookingTx(ctx, func(store Store, ledger availability.Store) error {
		if err := store.SetApproved(ctx, b.ID, now, paidAt, method); err != nil {
			return err
		}
		// Re-checked inside the same transaction: if another approval got
		// here first, this claim fails and the timestamp above rolls back.
		return ledger.ClaimSlot(ctx, b.EventDate, b.Slot, b.ID)
	})
	if err != nil {
		return nil, err
	}

	b.ApprovedAt = &now
	b.PaidAt = paidAt
	b.PaymentMethod = method
	return b, nil
}

// Decline moves a pending booking to declined. The ledger is untouched:
// pending bookings never held a slot.
func (s *Service) Decline(ctx context.Context, actorID, bookingID int64) (*Booking, error) {
	if err := s.requireRole(ctx, actorID, accesscontrol.DecisionRoles...); err != nil {
		return nil, err
	}

	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status() != StatusPending {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	if err := s.store.SetDeclined(ctx, b.ID, now); err != nil {
		return nil, err
	}

	b.DeclinedAt = &now
	return b, nil
}

// MarkPaid settles an approved, not-yet-paid booking.
func (s *Service) MarkPaid(ctx context.Context, actorID, bookingID int64, payment PaymentInfo) (*Booking, error) {
	if err := s.requireRole(ctx, actorID, accesscontrol.DecisionRoles...); err != nil {
		return nil, err
	}

	method := strings.TrimSpace(payment.Method)
	if method == "" {
		return nil, ErrMethodRequired
	}

	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status() != StatusApproved || b.Paid() {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	if err := s.store.SetPaid(ctx, b.ID, now, method); err != nil {
		return nil, err
	}

	b.PaidAt = &now
	b.PaymentMethod = &method
	return b, nil
}

func (s *Service) requireRole(ctx context.Context, actorID int64, roles ...accesscontrol.RoleName) error {
	ok, err := s.roles.HasAnyRole(ctx, actorID, roles...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// foldLegacyFlags collapses the karaoke/photographer booleans into the
// canonical selected-products form when the catalog carries a matching
// product. Toggles without a catalog counterpart stay toggles and are
// priced off the rate card.
func foldLegacyFlags(t pricing.Toggles, selections []pricing.Selection, catalog []pricing.Product) (pricing.Toggles, []pricing.Selection) {
	selected := make(map[int64]bool, len(selections))
	for _, sel := range selections {
		selected[sel.ProductID] = true
	}

	fold := func(flag *bool, key string) {
		if !*flag {
			return
		}
		for _, p := range catalog {
			if p.Key != key {
				continue
			}
			if !selected[p.ID] {
				selections = append(selections, pricing.Selection{ProductID: p.ID})
				selected[p.ID] = true
			}
			*flag = false
			return
		}
	}

	fold(&t.Karaoke, pricing.BundleProductKey)
	fold(&t.Photographer, "photographer")

	return t, selections
}
