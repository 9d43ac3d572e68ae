package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/catalog"
)

// Timeslot capacity lives on the workplace row, so every product read joins
// it in. COALESCE keeps the scan targets non-nullable for kinds that carry
// no workplace.
const (
	productColumns = `p.id, p.kind, p.name, p.price, p.available,
		p.duration_days, p.academic_levels, p.ticket_count,
		COALESCE(p.workplace_id, ''), COALESCE(w.seats, 0), p.start_at, p.end_at,
		p.seats, p.reserved_seats, p.exclusive_membership_ids`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN workplaces w ON w.id = p.workplace_id
		WHERE p.available ORDER BY p.kind, p.id`

	getProductByRefSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN workplaces w ON w.id = p.workplace_id
		WHERE p.id = $1 AND p.kind = $2`

	lockProductSQL = `SELECT ` + productColumns + `
		FROM products p LEFT JOIN workplaces w ON w.id = p.workplace_id
		WHERE p.id = $1 FOR UPDATE OF p`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all available products ordered by kind and ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByRef returns a single product matching both the kind and ID of the
// reference.
func (r *ProductRepository) GetByRef(ctx context.Context, ref catalog.Ref) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByRefSQL, ref.ID, ref.Kind)
	if err != nil {
		return nil, fmt.Errorf("getting product %s %q: %w", ref.Kind, ref.ID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %s %q: %w", ref.Kind, ref.ID, err)
	}
	return &p, nil
}

// ProductByRef resolves an order line's product reference inside the
// checkout transaction.
func (t *Tx) ProductByRef(ctx context.Context, ref catalog.Ref) (*catalog.Product, error) {
	rows, err := t.tx.Query(ctx, getProductByRefSQL, ref.ID, ref.Kind)
	if err != nil {
		return nil, fmt.Errorf("getting product %s %q: %w", ref.Kind, ref.ID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %s %q: %w", ref.Kind, ref.ID, err)
	}
	return &p, nil
}

// LockResource re-reads the product row FOR UPDATE. Concurrent checkouts
// touching the same resource serialize here, which keeps the seat count and
// the reservation insert one atomic unit.
func (t *Tx) LockResource(ctx context.Context, productID string) (*catalog.Product, error) {
	rows, err := t.tx.Query(ctx, lockProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("locking product %q: %w", productID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("locking product %q: %w", productID, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p       catalog.Product
		price   decimal.Decimal
		startAt *time.Time
		endAt   *time.Time
	)
	err := row.Scan(
		&p.ID, &p.Kind, &p.Name, &price, &p.Available,
		&p.DurationDays, &p.AcademicLevels, &p.TicketCount,
		&p.WorkplaceID, &p.WorkplaceSeats, &startAt, &endAt,
		&p.Seats, &p.ReservedSeats, &p.ExclusiveMembershipIDs,
	)
	p.Price = price
	if startAt != nil {
		p.StartAt = *startAt
	}
	if endAt != nil {
		p.EndAt = *endAt
	}
	return p, err
}
