package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loft/internal/domain/pricing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDayNotFound = errors.New("no availability record for this date")

const QueryTimeoutDuration = time.Second * 5

type Store interface {
	EnsureWindow(ctx context.Context, from time.Time, days int) error
	GetRange(ctx context.Context, from, to time.Time) ([]Day, error)
	GetDay(ctx context.Context, date time.Time) (*Day, error)
	ClaimSlot(ctx context.Context, date time.Time, slot pricing.Slot, bookingID int64) error
	ReleaseSlot(ctx context.Context, date time.Time, slot pricing.Slot, bookingID int64) error
}

// DB is satisfied by *pgxpool.Pool and pgx.Tx alike, so the approve
// transition can run the claim on its transaction.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Repository struct {
	db DB
}

func NewRepository(db DB) Store {
	return &Repository{db: db}
}

// EnsureWindow upserts one empty row per date for the rolling booking
// window. ON CONFLICT DO NOTHING keeps reseeding from clobbering slots that
// approved bookings already hold.
func (r *Repository) EnsureWindow(ctx context.Context, from time.Time, days int) error {
	const query = `
        INSERT INTO availability (date)
        VALUES ($1)
        ON CONFLICT (date) DO NOTHING`

	batch := &pgx.Batch{}
	start := Truncate(from)
	for i := 0; i < days; i++ {
		batch.Queue(query, start.AddDate(0, 0, i))
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < days; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed availability day[%d]: %w", i, err)
		}
	}
	return nil
}

func (r *Repository) GetRange(ctx context.Context, from, to time.Time) ([]Day, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        SELECT date, afternoon_booking_id, evening_booking_id
        FROM availability
        WHERE date >= $1 AND date <= $2
        ORDER BY date`
	rows, err := r.db.Query(ctx, query, Truncate(from), Truncate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Day
	for rows.Next() {
		var d Day
		if err := rows.Scan(&d.Date, &d.Afternoon.BookingID, &d.Evening.BookingID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) GetDay(ctx context.Context, date time.Time) (*Day, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        SELECT date, afternoon_booking_id, evening_booking_id
        FROM availability
        WHERE date = $1`
	var d Day
	err := r.db.QueryRow(ctx, query, Truncate(date)).
		Scan(&d.Date, &d.Afternoon.BookingID, &d.Evening.BookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ClaimSlot binds a slot to a booking, but only while the slot is still
// free. The conditional UPDATE is the optimistic-concurrency check that
// makes the first approval win; the loser gets a SlotTakenError naming the
// holder.
func (r *Repository) ClaimSlot(ctx context.Context, date time.Time, slot pricing.Slot, bookingID int64) error {
	col, err := slotColumn(slot)
	if err != nil {
		return err
	}
	day := Truncate(date)

	query := fmt.Sprintf(`
        UPDATE availability
        SET %s = $1
        WHERE date = $2 AND %s IS NULL`, col, col)
	res, err := r.db.Exec(ctx, query, bookingID, day)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	// Either the day row is missing or someone else holds the slot.
	holderQuery := fmt.Sprintf(`SELECT %s FROM availability WHERE date = $1`, col)
	var holder *int64
	if err := r.db.QueryRow(ctx, holderQuery, day).Scan(&holder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDayNotFound
		}
		return err
	}
	if holder == nil {
		// row exists but the claim did not land; treat as a retryable miss
		return ErrDayNotFound
	}
	return &SlotTakenError{Date: day, Slot: slot, HolderID: *holder}
}

// ReleaseSlot clears a slot, but only if the given booking holds it.
func (r *Repository) ReleaseSlot(ctx context.Context, date time.Time, slot pricing.Slot, bookingID int64) error {
	col, err := slotColumn(slot)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
        UPDATE availability
        SET %s = NULL
        WHERE date = $1 AND %s = $2`, col, col)
	res, err := r.db.Exec(ctx, query, Truncate(date), bookingID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("booking %d does not hold the %s slot on %s",
			bookingID, slot, Truncate(date).Format("2006-01-02"))
	}
	return nil
}

// slotColumn maps a slot to its ledger column. Only the two known values
// pass, so the fmt.Sprintf queries never see unvetted input.
func slotColumn(slot pricing.Slot) (string, error) {
	switch slot {
	case pricing.SlotAfternoon:
		return "afternoon_booking_id", nil
	case pricing.SlotEvening:
		return "evening_booking_id", nil
	default:
		return "", pricing.ErrInvalidSlot
	}
}
