package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"loft/internal/domain/accesscontrol"
	"loft/internal/domain/availability"
	"loft/internal/domain/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore is an in-memory Store with the same transition guards as the
// SQL repository.
type mockStore struct {
	seq      int64
	bookings map[int64]*Booking
}

func newMockStore() *mockStore {
	return &mockStore{bookings: make(map[int64]*Booking)}
}

func (m *mockStore) Create(ctx context.Context, b *Booking) error {
	m.seq++
	b.ID = m.seq
	b.CreatedAt = time.Now().UTC()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockStore) SetReference(ctx context.Context, id int64, reference string) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Reference = reference
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id int64) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockStore) ListForDate(ctx context.Context, date time.Time, status *Status) ([]Booking, error) {
	var out []Booking
	for _, b := range m.bookings {
		if b.EventDate.Equal(availability.Truncate(date)) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockStore) ListByCustomer(ctx context.Context, customerID int64, filter Filter) ([]Booking, error) {
	var out []Booking
	for _, b := range m.bookings {
		if b.CustomerID == customerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockStore) SetApproved(ctx context.Context, id int64, at time.Time, paidAt *time.Time, method *string) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if b.ApprovedAt != nil || b.DeclinedAt != nil {
		return ErrInvalidTransition
	}
	b.ApprovedAt = &at
	b.PaidAt = paidAt
	b.PaymentMethod = method
	return nil
}

func (m *mockStore) SetDeclined(ctx context.Context, id int64, at time.Time) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if b.ApprovedAt != nil || b.DeclinedAt != nil {
		return ErrInvalidTransition
	}
	b.DeclinedAt = &at
	return nil
}

func (m *mockStore) SetPaid(ctx context.Context, id int64, at time.Time, method string) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	if b.ApprovedAt == nil || b.DeclinedAt != nil || b.PaidAt != nil {
		return ErrInvalidTransition
	}
	b.PaidAt = &at
	b.PaymentMethod = &method
	return nil
}

// mockLedger mirrors the conditional-claim semantics of the SQL ledger.
type mockLedger struct {
	days map[string]*availability.Day
}

func newMockLedger(dates ...time.Time) *mockLedger {
	m := &mockLedger{days: make(map[string]*availability.Day)}
	for _, d := range dates {
		day := availability.Truncate(d)
		m.days[day.Format("2006-01-02")] = &availability.Day{Date: day}
	}
	return m
}

func (m *mockLedger) EnsureWindow(ctx context.Context, from time.Time, days int) error {
	for i := 0; i < days; i++ {
		day := availability.Truncate(from).AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		if _, ok := m.days[key]; !ok {
			m.days[key] = &availability.Day{Date: day}
		}
	}
	return nil
}

func (m *mockLedger) GetRange(ctx context.Context, from, to time.Time) ([]availability.Day, error) {
	var out []availability.Day
	for _, d := range m.days {
		if !d.Date.Before(availability.Truncate(from)) && !d.Date.After(availability.Truncate(to)) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockLedger) GetDay(ctx context.Context, date time.Time) (*availability.Day, error) {
	d, ok := m.days[availability.Truncate(date).Format("2006-01-02")]
	if !ok {
		return nil, availability.ErrDayNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockLedger) ClaimSlot(ctx context.Context, date time.Time, slot pricing.Slot, bookingID int64) error {
	d, ok := m.days[availability.Truncate(date).Format("2006-01-02")]
	if !ok {
		return availability.ErrDayNotFound
	}
	state := &d.Afternoon
	if slot == pricing.SlotEvening {
		state = &d.Evening
	}
	if state.BookingID != nil {
		return &availability.SlotTakenError{Date: d.Date, Slot: slot, HolderID: *state.BookingID}
	}
	state.BookingID = &bookingID
	return nil
}

func (m *mockLedger) ReleaseSlot(ctx context.Context, date time.Time, slot pricing.Slot, bookingID int64) error {
	d, ok := m.days[availability.Truncate(date).Format("2006-01-02")]
	if !ok {
		return availability.ErrDayNotFound
	}
	state := &d.Afternoon
	if slot == pricing.SlotEvening {
		state = &d.Evening
	}
	if state.BookingID == nil || *state.BookingID != bookingID {
		return errors.New("not the holder")
	}
	state.BookingID = nil
	return nil
}

type mockCatalog struct {
	products []pricing.Product
	rates    pricing.RateCard
}

func (m *mockCatalog) Snapshot(ctx context.Context) ([]pricing.Product, pricing.RateCard, error) {
	return m.products, m.rates, nil
}

type mockRoles struct {
	roles map[int64][]accesscontrol.RoleName
}

func (m *mockRoles) HasAnyRole(ctx context.Context, userID int64, roles ...accesscontrol.RoleName) (bool, error) {
	for _, held := range m.roles[userID] {
		for _, want := range roles {
			if held == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// mockTx has no rollback; the tests that need rollback semantics exercise
// the claim first via the ledger state instead.
type mockTx struct {
	store  Store
	ledger availability.Store
}

func (m *mockTx) WithBookingTx(ctx context.Context, fn func(Store, availability.Store) error) error {
	return fn(m.store, m.ledger)
}

const (
	managerID  = int64(1)
	guestID    = int64(2)
	customerID = int64(10)
)

func newTestService(t *testing.T, ledger *mockLedger) (*Service, *mockStore) {
	t.Helper()

	store := newMockStore()
	refs, err := NewReferenceEncoder("test-salt")
	require.NoError(t, err)

	catalog := &mockCatalog{
		rates: pricing.RateCard{
			MinimumTotal:            1000,
			EveningPerGuest:         150,
			AfternoonWithKaraoke:    2500,
			AfternoonWithoutKaraoke: 2000,
			ExtraHourPerGuest:       30,
			PhotographerFlat:        800,
		},
		products: []pricing.Product{
			{ID: 1, Key: "karaoke", Name: "Karaoke", Price: 500, Unit: pricing.UnitPerEvent},
			{ID: 2, Key: "photographer", Name: "Photographer", Price: 800, Unit: pricing.UnitPerEvent},
			{ID: 3, Key: "overtime", Name: "Overtime hour", Price: 200, Unit: pricing.UnitPerHour},
		},
	}
	roles := &mockRoles{roles: map[int64][]accesscontrol.RoleName{
		managerID: {accesscontrol.RoleManager},
		guestID:   {accesscontrol.RoleGuest},
	}}

	return NewService(store, ledger, catalog, roles, &mockTx{store: store, ledger: ledger}, refs), store
}

func eveningCreateInput(date time.Time, total int) CreateInput {
	return CreateInput{
		CustomerID:     customerID,
		CustomerName:   "Mara Lindqvist",
		CustomerEmail:  "mara@example.com",
		EventDate:      date,
		Slot:           pricing.SlotEvening,
		Guests:         20,
		SubmittedTotal: total,
	}
}

func TestCreate_PendingAndReferenced(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))

	b, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, b.Status())
	assert.False(t, b.Paid())
	assert.Regexp(t, `^LB-[A-Z2-9]{6,}$`, b.Reference)
}

func TestCreate_PriceMismatchRejected(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, newMockLedger(date))

	_, err := svc.Create(context.Background(), eveningCreateInput(date, 2500))
	assert.ErrorIs(t, err, pricing.ErrPriceMismatch)
	assert.Empty(t, store.bookings, "no booking may be created on a price mismatch")
}

func TestCreate_OutsideWindowRejected(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))

	in := eveningCreateInput(date.AddDate(1, 0, 0), 3000)
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrDateUnavailable)
}

func TestCreate_FoldsLegacyFlags(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))

	in := eveningCreateInput(date, 3000+500)
	in.Toggles = pricing.Toggles{Karaoke: true}

	b, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	// the toggle becomes a product selection and is cleared
	assert.False(t, b.Karaoke)
	require.Len(t, b.Selections, 1)
	assert.Equal(t, int64(1), b.Selections[0].ProductID)
}

func TestCreate_AfternoonExtraHoursQuoteAccepted(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, store := newTestService(t, newMockLedger(date))

	// Afternoon has no extra hours, so the per-hour product contributes
	// nothing and the quoted total is the bare afternoon base. Submitting
	// exactly that total must be accepted.
	in := eveningCreateInput(date, 2000)
	in.Slot = pricing.SlotAfternoon
	in.Guests = 10
	in.ExtraHours = 2
	in.Selections = []pricing.Selection{{ProductID: 3}}

	b, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2000, b.TotalPrice)
	assert.Zero(t, b.ExtraHours)
	assert.Zero(t, store.bookings[b.ID].ExtraHours)
}

func TestCreate_TwoPendingForSameSlotAllowed(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))

	_, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)
}

func TestApprove_ClaimsSlot(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	ledger := newMockLedger(date)
	svc, _ := newTestService(t, ledger)

	b, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), managerID, b.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status())
	assert.False(t, approved.Paid())

	day, err := ledger.GetDay(context.Background(), date)
	require.NoError(t, err)
	require.NotNil(t, day.Evening.BookingID)
	assert.Equal(t, b.ID, *day.Evening.BookingID)
	assert.Nil(t, day.Afternoon.BookingID)
}

func TestApprove_FirstApprovalWins(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	ledger := newMockLedger(date)
	svc, _ := newTestService(t, ledger)

	b1, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)
	b2, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), managerID, b1.ID, nil)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), managerID, b2.ID, nil)
	var taken *availability.SlotTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, b1.ID, taken.HolderID)

	// the ledger must still point at the winner
	day, err := ledger.GetDay(context.Background(), date)
	require.NoError(t, err)
	require.NotNil(t, day.Evening.BookingID)
	assert.Equal(t, b1.ID, *day.Evening.BookingID)
}

func TestApprove_OtherSlotStaysFree(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	ledger := newMockLedger(date)
	svc, _ := newTestService(t, ledger)

	evening, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	afternoon := eveningCreateInput(date, 2000)
	afternoon.Slot = pricing.SlotAfternoon
	afternoon.Guests = 15
	b2, err := svc.Create(context.Background(), afternoon)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), managerID, evening.ID, nil)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), managerID, b2.ID, nil)
	require.NoError(t, err, "a different slot on the same date must not conflict")
}

func TestApprove_RequiresDecisionRole(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	ledger := newMockLedger(date)
	svc, _ := newTestService(t, ledger)

	b, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), guestID, b.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	// the transition must not have happened
	day, err := ledger.GetDay(context.Background(), date)
	require.NoError(t, err)
	assert.Nil(t, day.Evening.BookingID)
}

func TestApprove_WithPaymentOnApproval(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))

	b, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), managerID, b.ID, &PaymentInfo{Method: "card"})
	require.NoError(t, err)
	assert.True(t, approved.Paid())
	require.NotNil(t, approved.PaymentMethod)
	assert.Equal(t, "card", *approved.PaymentMethod)
}

func TestApprove_EmptyPaymentMethodRejected(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))

	b, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), managerID, b.ID, &PaymentInfo{Method: "   "})
	assert.ErrorIs(t, err, ErrMethodRequired)
}

func TestDecline_LeavesLedgerUntouched(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	ledger := newMockLedger(date)
	svc, _ := newTestService(t, ledger)

	b, err := svc.Create(context.Background(), eveningCreateInput(date, 3000))
	require.NoError(t, err)

	declined, err := svc.Decline(context.Background(), managerID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, declined.Status())

	day, err := ledger.GetDay(context.Background(), date)
	require.NoError(t, err)
	assert.Nil(t, day.Evening.BookingID)
}

func TestTransitions_TerminalStatesStayTerminal(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))
	ctx := context.Background()

	declined, err := svc.Create(ctx, eveningCreateInput(date, 3000))
	require.NoError(t, err)
	_, err = svc.Decline(ctx, managerID, declined.ID)
	require.NoError(t, err)

	// a declined booking can neither be approved, declined again, nor paid
	_, err = svc.Approve(ctx, managerID, declined.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Decline(ctx, managerID, declined.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.MarkPaid(ctx, managerID, declined.ID, PaymentInfo{Method: "cash"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkPaid(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))
	ctx := context.Background()

	b, err := svc.Create(ctx, eveningCreateInput(date, 3000))
	require.NoError(t, err)

	// pending bookings cannot be settled
	_, err = svc.MarkPaid(ctx, managerID, b.ID, PaymentInfo{Method: "cash"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Approve(ctx, managerID, b.ID, nil)
	require.NoError(t, err)

	_, err = svc.MarkPaid(ctx, managerID, b.ID, PaymentInfo{Method: ""})
	assert.ErrorIs(t, err, ErrMethodRequired)

	paid, err := svc.MarkPaid(ctx, managerID, b.ID, PaymentInfo{Method: "invoice"})
	require.NoError(t, err)
	assert.True(t, paid.Paid())

	// paying twice is invalid
	_, err = svc.MarkPaid(ctx, managerID, b.ID, PaymentInfo{Method: "cash"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkPaid_RequiresDecisionRole(t *testing.T) {
	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, newMockLedger(date))
	ctx := context.Background()

	b, err := svc.Create(ctx, eveningCreateInput(date, 3000))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, managerID, b.ID, nil)
	require.NoError(t, err)

	_, err = svc.MarkPaid(ctx, guestID, b.ID, PaymentInfo{Method: "cash"})
	assert.ErrorIs(t, err, ErrForbidden)
}
