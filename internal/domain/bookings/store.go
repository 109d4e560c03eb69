package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loft/internal/domain/availability"
	"loft/internal/domain/pricing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrInvalidTransition = errors.New("booking state does not permit this transition")
	ErrMethodRequired    = errors.New("payment method is required")
	ErrForbidden         = errors.New("caller lacks the role required for this action")
	ErrDateUnavailable   = errors.New("date is outside the bookable window")
)

const QueryTimeoutDuration = time.Second * 5

type Store interface {
	Create(ctx context.Context, b *Booking) error
	SetReference(ctx context.Context, id int64, reference string) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	ListForDate(ctx context.Context, date time.Time, status *Status) ([]Booking, error)
	ListByCustomer(ctx context.Context, customerID int64, filter Filter) ([]Booking, error)
	SetApproved(ctx context.Context, id int64, at time.Time, paidAt *time.Time, method *string) error
	SetDeclined(ctx context.Context, id int64, at time.Time) error
	SetPaid(ctx context.Context, id int64, at time.Time, method string) error
}

// DB is satisfied by *pgxpool.Pool and pgx.Tx alike.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DB
}

func NewRepository(db DB) Store {
	return &Repository{db: db}
}

const bookingColumns = `
        id, reference, customer_id, customer_name, customer_email, customer_phone,
        event_date, slot, guests, extra_hours, selections, total_price,
        karaoke, photographer, food, drinks, snacks,
        created_at, approved_at, declined_at, paid_at, payment_method`

func (r *Repository) Create(ctx context.Context, b *Booking) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        INSERT INTO bookings (
            customer_id, customer_name, customer_email, customer_phone,
            event_date, slot, guests, extra_hours, selections, total_price,
            karaoke, photographer, food, drinks, snacks
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id, created_at`
	if b.Selections == nil {
		b.Selections = []pricing.Selection{}
	}
	return r.db.QueryRow(ctx, query,
		b.CustomerID,
		b.CustomerName,
		b.CustomerEmail,
		b.CustomerPhone,
		availability.Truncate(b.EventDate),
		b.Slot,
		b.Guests,
		b.ExtraHours,
		b.Selections,
		b.TotalPrice,
		b.Karaoke,
		b.Photographer,
		b.Food,
		b.Drinks,
		b.Snacks,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *Repository) SetReference(ctx context.Context, id int64, reference string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx, `UPDATE bookings SET reference = $1 WHERE id = $2`, reference, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (r *Repository) ListForDate(ctx context.Context, date time.Time, status *Status) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT` + bookingColumns + ` FROM bookings WHERE event_date = $1`
	args := []any{availability.Truncate(date)}

	if status != nil {
		switch *status {
		case StatusPending:
			query += ` AND approved_at IS NULL AND declined_at IS NULL`
		case StatusApproved:
			query += ` AND approved_at IS NOT NULL`
		case StatusDeclined:
			query += ` AND declined_at IS NOT NULL`
		}
	}
	query += ` ORDER BY created_at`

	return r.list(ctx, query, args...)
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID int64, filter Filter) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT` + bookingColumns + ` FROM bookings WHERE customer_id = $1`
	args := []any{customerID}
	idx := 2

	if filter.Status != nil {
		switch *filter.Status {
		case StatusPending:
			query += ` AND approved_at IS NULL AND declined_at IS NULL`
		case StatusApproved:
			query += ` AND approved_at IS NOT NULL`
		case StatusDeclined:
			query += ` AND declined_at IS NOT NULL`
		}
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, filter.Limit, filter.offset())

	return r.list(ctx, query, args...)
}

// SetApproved stamps the approval (and optionally the payment) on a booking
// that is still pending. The WHERE guard makes illegal transitions touch
// zero rows instead of silently rewriting history.
func (r *Repository) SetApproved(ctx context.Context, id int64, at time.Time, paidAt *time.Time, method *string) error {
	const query = `
        UPDATE bookings
        SET approved_at = $1, paid_at = $2, payment_method = $3
        WHERE id = $4 AND approved_at IS NULL AND declined_at IS NULL`
	res, err := r.db.Exec(ctx, query, at, paidAt, method, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}
	return nil
}

func (r *Repository) SetDeclined(ctx context.Context, id int64, at time.Time) error {
	const query = `
        UPDATE bookings
        SET declined_at = $1
        WHERE id = $2 AND approved_at IS NULL AND declined_at IS NULL`
	res, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}
	return nil
}

func (r *Repository) SetPaid(ctx context.Context, id int64, at time.Time, method string) error {
	const query = `
        UPDATE bookings
        SET paid_at = $1, payment_method = $2
        WHERE id = $3 AND approved_at IS NOT NULL AND declined_at IS NULL AND paid_at IS NULL`
	res, err := r.db.Exec(ctx, query, at, method, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}
	return nil
}

// transitionError tells a missing booking apart from one in the wrong state.
func (r *Repository) transitionError(ctx context.Context, id int64) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.CustomerID,
		&b.CustomerName,
		&b.CustomerEmail,
		&b.CustomerPhone,
		&b.EventDate,
		&b.Slot,
		&b.Guests,
		&b.ExtraHours,
		&b.Selections,
		&b.TotalPrice,
		&b.Karaoke,
		&b.Photographer,
		&b.Food,
		&b.Drinks,
		&b.Snacks,
		&b.CreatedAt,
		&b.ApprovedAt,
		&b.DeclinedAt,
		&b.PaidAt,
		&b.PaymentMethod,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
