package storage

import (
	"context"
	"fmt"
	"loft/internal/domain/accesscontrol"
	"loft/internal/domain/availability"
	"loft/internal/domain/bookings"
	"loft/internal/domain/catalog"
	"loft/internal/domain/pushtokens"
	"loft/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool          *pgxpool.Pool // nil outside NewContainer; WithBookingTx needs it
	Users         users.Store
	Bookings      bookings.Store
	Availability  availability.Store
	Catalog       catalog.Store
	AccessControl accesscontrol.Store
	PushTokens    pushtokens.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:          db,
		Users:         users.NewRepository(db),
		Bookings:      bookings.NewRepository(db),
		Availability:  availability.NewRepository(db),
		Catalog:       catalog.NewRepository(db),
		AccessControl: accesscontrol.NewRepository(db),
		PushTokens:    pushtokens.NewRepository(db),
	}
}

// WithBookingTx runs a booking decision atomically: the status timestamp and
// the availability claim commit or roll back together. The repos handed to fn
// are bound to the transaction and must not escape it.
func (c *Container) WithBookingTx(ctx context.Context, fn func(b bookings.Store, a availability.Store) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage: container has no pool, transactions unavailable")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	if err := fn(bookings.NewRepository(tx), availability.NewRepository(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
