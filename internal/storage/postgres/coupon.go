package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/catalog"
	"github.com/volna/booking-api/internal/domain/coupon"
)

const (
	couponColumns = `code, value, percent_off, max_use, max_use_per_user,
		applicable_kinds, applicable_product_ids, details, active, start_at, end_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	createCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateCouponSQL = `UPDATE coupons SET value = $2, percent_off = $3,
		max_use = $4, max_use_per_user = $5, applicable_kinds = $6,
		applicable_product_ids = $7, details = $8, active = $9,
		start_at = $10, end_at = $11
		WHERE code = $1`

	upsertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code) DO UPDATE SET value = EXCLUDED.value,
			percent_off = EXCLUDED.percent_off, max_use = EXCLUDED.max_use,
			max_use_per_user = EXCLUDED.max_use_per_user,
			applicable_kinds = EXCLUDED.applicable_kinds,
			applicable_product_ids = EXCLUDED.applicable_product_ids,
			details = EXCLUDED.details, active = EXCLUDED.active,
			start_at = EXCLUDED.start_at, end_at = EXCLUDED.end_at`

	listCouponCodesSQL = `SELECT code FROM coupons ORDER BY code`

	couponUsesSQL = `SELECT COALESCE(SUM(uses), 0),
		COALESCE(SUM(uses) FILTER (WHERE user_id = $2), 0)
		FROM coupon_uses WHERE coupon_code = $1`

	incrementCouponUseSQL = `INSERT INTO coupon_uses (coupon_code, user_id, uses)
		VALUES ($1, $2, 1)
		ON CONFLICT (coupon_code, user_id) DO UPDATE SET uses = coupon_uses.uses + 1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByCode looks up a coupon by its code, case-insensitively.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return getCoupon(ctx, r.pool, code)
}

// Create persists a new coupon. The value/percent exclusivity is validated
// by the service before it reaches storage; the CHECK constraint backs it up.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL, couponArgs(c)...)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Update replaces all mutable fields of an existing coupon.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL, couponArgs(c)...)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", c.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert creates the coupon or replaces all mutable fields of an existing
// one. Used by bulk imports, which must be re-runnable.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL, couponArgs(c)...)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// ListCodes returns every issued coupon code.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// CouponByCode looks up a coupon inside the checkout transaction.
func (t *Tx) CouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return getCoupon(ctx, t.tx, code)
}

// CouponUses returns the aggregate and per-user redemption counters for the
// coupon.
func (t *Tx) CouponUses(ctx context.Context, code, userID string) (total, byUser int, err error) {
	if err := t.tx.QueryRow(ctx, couponUsesSQL, code, userID).Scan(&total, &byUser); err != nil {
		return 0, 0, fmt.Errorf("counting uses of coupon %q: %w", code, err)
	}
	return total, byUser, nil
}

// IncrementCouponUse upserts the per-user usage counter by one. The counter
// commits or rolls back together with the order that redeemed the coupon.
func (t *Tx) IncrementCouponUse(ctx context.Context, code, userID string) error {
	_, err := t.tx.Exec(ctx, incrementCouponUseSQL, code, userID)
	if err != nil {
		return fmt.Errorf("incrementing uses of coupon %q: %w", code, err)
	}
	return nil
}

// querier is the subset of pgxpool.Pool and pgx.Tx the shared lookups need.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getCoupon(ctx context.Context, q querier, code string) (*coupon.Coupon, error) {
	rows, err := q.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %q: %w", code, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c     coupon.Coupon
		value decimal.NullDecimal
		pct   *int32
		kinds []string
	)
	err := row.Scan(
		&c.Code, &value, &pct, &c.MaxUse, &c.MaxUsePerUser,
		&kinds, &c.ApplicableProductIDs, &c.Details, &c.Active, &c.StartAt, &c.EndAt,
	)
	if value.Valid {
		c.Value = value.Decimal
	}
	if pct != nil {
		c.PercentOff = int(*pct)
	}
	c.ApplicableKinds = make([]catalog.Kind, len(kinds))
	for i, k := range kinds {
		c.ApplicableKinds[i] = catalog.Kind(k)
	}
	return c, err
}

// couponArgs flattens a coupon into the shared insert/update argument list.
// Exactly one of value and percent_off is non-NULL.
func couponArgs(c *coupon.Coupon) []any {
	var (
		value decimal.NullDecimal
		pct   *int32
	)
	if c.IsPercent() {
		p := int32(c.PercentOff)
		pct = &p
	} else {
		value = decimal.NullDecimal{Decimal: c.Value, Valid: true}
	}

	kinds := make([]string, len(c.ApplicableKinds))
	for i, k := range c.ApplicableKinds {
		kinds[i] = string(k)
	}

	return []any{
		c.Code, value, pct, c.MaxUse, c.MaxUsePerUser,
		kinds, c.ApplicableProductIDs, c.Details, c.Active, c.StartAt, c.EndAt,
	}
}
