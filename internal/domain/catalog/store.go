package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loft/internal/database"
	"loft/internal/domain/pricing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrServiceNotFound = errors.New("service not found")
	ErrImageNotFound   = errors.New("product image not found")
	ErrDuplicateKey    = errors.New("product with this key already exists")
	ErrNegativeRate    = errors.New("rate card values must not be negative")
)

const QueryTimeoutDuration = time.Second * 5

// Store is the data access abstraction for the catalog domain.
type Store interface {
	// Snapshot loads the full product catalog and the rate card in one shot
	// so pricing decisions run against a consistent view.
	Snapshot(ctx context.Context) ([]pricing.Product, pricing.RateCard, error)

	// Products
	ListProducts(ctx context.Context, visibleOnly bool) ([]pricing.Product, error)
	GetProductByID(ctx context.Context, id int64) (*pricing.Product, error)
	CreateProduct(ctx context.Context, p *pricing.Product) error
	UpdateProduct(ctx context.Context, p *pricing.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ReorderProducts(ctx context.Context, orderedIDs []int64) error

	// Rate card
	GetRateCard(ctx context.Context) (pricing.RateCard, error)
	UpdateRateCard(ctx context.Context, rc pricing.RateCard) error

	// Services
	ListServices(ctx context.Context, visibleOnly bool) ([]Service, error)
	CreateService(ctx context.Context, s *Service) error
	UpdateService(ctx context.Context, s *Service) error
	DeleteService(ctx context.Context, id int64) error

	// Product images
	ListProductImages(ctx context.Context, productID int64) ([]ProductImage, error)
	AddProductImage(ctx context.Context, img *ProductImage) error
	DeleteProductImage(ctx context.Context, productID, imageID int64) (*ProductImage, error)
}

// DB is satisfied by *pgxpool.Pool and pgx.Tx alike.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db   DB
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Store {
	return &Repository{db: pool, pool: pool}
}

func (r *Repository) Snapshot(ctx context.Context) ([]pricing.Product, pricing.RateCard, error) {
	products, err := r.ListProducts(ctx, false)
	if err != nil {
		return nil, pricing.RateCard{}, err
	}
	rates, err := r.GetRateCard(ctx)
	if err != nil {
		return nil, pricing.RateCard{}, err
	}
	return products, rates, nil
}

func (r *Repository) ListProducts(ctx context.Context, visibleOnly bool) ([]pricing.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, key, name, price, unit, category, package_key,
               default_in_package, visible, sort_order, slots
        FROM products`
	if visibleOnly {
		query += ` WHERE visible = true`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repository) GetProductByID(ctx context.Context, id int64) (*pricing.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        SELECT id, key, name, price, unit, category, package_key,
               default_in_package, visible, sort_order, slots
        FROM products
        WHERE id = $1`
	row := r.db.QueryRow(ctx, query, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *pricing.Product) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        INSERT INTO products
          (key, name, price, unit, category, package_key, default_in_package, visible, sort_order, slots)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		p.Key,
		p.Name,
		p.Price,
		p.Unit,
		p.Category,
		p.PackageKey,
		p.DefaultInPackage,
		p.Visible,
		p.SortOrder,
		slotStrings(p.Slots),
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p *pricing.Product) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        UPDATE products
        SET key = $1, name = $2, price = $3, unit = $4, category = $5,
            package_key = $6, default_in_package = $7, visible = $8,
            sort_order = $9, slots = $10
        WHERE id = $11`
	res, err := r.db.Exec(ctx, query,
		p.Key,
		p.Name,
		p.Price,
		p.Unit,
		p.Category,
		p.PackageKey,
		p.DefaultInPackage,
		p.Visible,
		p.SortOrder,
		slotStrings(p.Slots),
		p.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateKey
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ReorderProducts rewrites sort_order for the given IDs in one transaction,
// batched into a single round-trip.
func (r *Repository) ReorderProducts(ctx context.Context, orderedIDs []int64) error {
	return database.WithTx(r.pool, ctx, func(tx pgx.Tx) error {
		const query = `UPDATE products SET sort_order = $1 WHERE id = $2`

		batch := &pgx.Batch{}
		for i, id := range orderedIDs {
			batch.Queue(query, i, id)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for i := range orderedIDs {
			res, err := br.Exec()
			if err != nil {
				return fmt.Errorf("reorder product[%d]: %w", i, err)
			}
			if res.RowsAffected() == 0 {
				return fmt.Errorf("reorder product[%d]: %w", i, ErrProductNotFound)
			}
		}
		return nil
	})
}

// The rate card is a single-row table; id = 1 always.
func (r *Repository) GetRateCard(ctx context.Context) (pricing.RateCard, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        SELECT minimum_total, evening_per_guest, afternoon_with_karaoke,
               afternoon_without_karaoke, food_per_guest, drinks_per_guest,
               snacks_per_guest, extra_hour_per_guest, photographer_flat
        FROM rate_card
        WHERE id = 1`
	var rc pricing.RateCard
	err := r.db.QueryRow(ctx, query).Scan(
		&rc.MinimumTotal,
		&rc.EveningPerGuest,
		&rc.AfternoonWithKaraoke,
		&rc.AfternoonWithoutKaraoke,
		&rc.FoodPerGuest,
		&rc.DrinksPerGuest,
		&rc.SnacksPerGuest,
		&rc.ExtraHourPerGuest,
		&rc.PhotographerFlat,
	)
	return rc, err
}

func (r *Repository) UpdateRateCard(ctx context.Context, rc pricing.RateCard) error {
	for _, v := range []int{
		rc.MinimumTotal, rc.EveningPerGuest, rc.AfternoonWithKaraoke,
		rc.AfternoonWithoutKaraoke, rc.FoodPerGuest, rc.DrinksPerGuest,
		rc.SnacksPerGuest, rc.ExtraHourPerGuest, rc.PhotographerFlat,
	} {
		if v < 0 {
			return ErrNegativeRate
		}
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        UPDATE rate_card
        SET minimum_total = $1, evening_per_guest = $2, afternoon_with_karaoke = $3,
            afternoon_without_karaoke = $4, food_per_guest = $5, drinks_per_guest = $6,
            snacks_per_guest = $7, extra_hour_per_guest = $8, photographer_flat = $9,
            updated_at = NOW()
        WHERE id = 1`
	_, err := r.db.Exec(ctx, query,
		rc.MinimumTotal,
		rc.EveningPerGuest,
		rc.AfternoonWithKaraoke,
		rc.AfternoonWithoutKaraoke,
		rc.FoodPerGuest,
		rc.DrinksPerGuest,
		rc.SnacksPerGuest,
		rc.ExtraHourPerGuest,
		rc.PhotographerFlat,
	)
	return err
}

func (r *Repository) ListServices(ctx context.Context, visibleOnly bool) ([]Service, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, title, description, icon, visible, sort_order, created_at, updated_at
        FROM services`
	if visibleOnly {
		query += ` WHERE visible = true`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Icon, &s.Visible, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) CreateService(ctx context.Context, s *Service) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        INSERT INTO services (title, description, icon, visible, sort_order)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, s.Title, s.Description, s.Icon, s.Visible, s.SortOrder).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *Repository) UpdateService(ctx context.Context, s *Service) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        UPDATE services
        SET title = $1, description = $2, icon = $3, visible = $4, sort_order = $5,
            updated_at = NOW()
        WHERE id = $6`
	res, err := r.db.Exec(ctx, query, s.Title, s.Description, s.Icon, s.Visible, s.SortOrder, s.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *Repository) DeleteService(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *Repository) ListProductImages(ctx context.Context, productID int64) ([]ProductImage, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        SELECT id, product_id, url, public_id, sort_order, created_at
        FROM product_images
        WHERE product_id = $1
        ORDER BY sort_order, id`
	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductImage
	for rows.Next() {
		var img ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.PublicID, &img.SortOrder, &img.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (r *Repository) AddProductImage(ctx context.Context, img *ProductImage) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        INSERT INTO product_images (product_id, url, public_id, sort_order)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, img.ProductID, img.URL, img.PublicID, img.SortOrder).
		Scan(&img.ID, &img.CreatedAt)
}

// DeleteProductImage removes the row and returns it so the caller can also
// drop the asset from cloudinary.
func (r *Repository) DeleteProductImage(ctx context.Context, productID, imageID int64) (*ProductImage, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	const query = `
        DELETE FROM product_images
        WHERE id = $1 AND product_id = $2
        RETURNING id, product_id, url, public_id, sort_order, created_at`
	var img ProductImage
	err := r.db.QueryRow(ctx, query, imageID, productID).
		Scan(&img.ID, &img.ProductID, &img.URL, &img.PublicID, &img.SortOrder, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &img, nil
}

func scanProduct(row pgx.Row) (*pricing.Product, error) {
	var p pricing.Product
	var slots []string
	err := row.Scan(
		&p.ID,
		&p.Key,
		&p.Name,
		&p.Price,
		&p.Unit,
		&p.Category,
		&p.PackageKey,
		&p.DefaultInPackage,
		&p.Visible,
		&p.SortOrder,
		&slots,
	)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		p.Slots = append(p.Slots, pricing.Slot(s))
	}
	return &p, nil
}

func slotStrings(slots []pricing.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, string(s))
	}
	return out
}
