package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/volna/booking-api/internal/domain/catalog"
)

// Sentinel errors for coupon lookup and redemption.
var (
	// ErrNotFound is returned when a coupon code does not exist or is inactive.
	ErrNotFound = errors.New("coupon not found")
	// ErrExhausted is returned when a coupon's global usage cap is reached.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrUserExhausted is returned when the requesting user's per-coupon cap
	// is reached.
	ErrUserExhausted = errors.New("coupon usage limit reached for this user")
	// ErrNoEligibleLine is returned when no order line matches the coupon's
	// applicable product sets.
	ErrNoEligibleLine = errors.New("coupon does not apply to any item in this order")
	// ErrExpired is returned when a coupon is used outside its validity window.
	ErrExpired = errors.New("coupon expired")
	// ErrConflictingDiscount is raised at create/update time when both an
	// absolute value and a percentage are set, or neither is.
	ErrConflictingDiscount = errors.New("coupon must have exactly one of value or percent_off")
	// ErrCodeSpaceExhausted is returned when code generation cannot find a
	// free code within the attempt budget.
	ErrCodeSpaceExhausted = errors.New("cannot generate a unique coupon code")
)

// Coupon is a discount code with usage caps. Exactly one of Value and
// PercentOff is set; the invariant is enforced on create and update, not at
// redemption time.
type Coupon struct {
	Code          string
	Value         decimal.Decimal
	PercentOff    int
	MaxUse        int
	MaxUsePerUser int

	// A line is eligible when its product kind appears in ApplicableKinds or
	// its product id appears in ApplicableProductIDs.
	ApplicableKinds      []catalog.Kind
	ApplicableProductIDs []string

	Details string
	Active  bool
	StartAt *time.Time
	EndAt   *time.Time
}

// IsPercent reports whether the coupon discounts by percentage rather than
// by absolute value.
func (c *Coupon) IsPercent() bool {
	return c.PercentOff > 0
}

// AppliesTo reports whether the coupon can discount a line referencing the
// given product.
func (c *Coupon) AppliesTo(ref catalog.Ref) bool {
	for _, k := range c.ApplicableKinds {
		if k == ref.Kind {
			return true
		}
	}
	for _, id := range c.ApplicableProductIDs {
		if id == ref.ID {
			return true
		}
	}
	return false
}

// Line is one order line as seen by the coupon engine.
type Line struct {
	Ref  catalog.Ref
	Cost decimal.Decimal
}

// Tx is the transactional surface the engine redeems against. All three
// operations must run inside the caller's enclosing transaction so the
// usage counters commit or roll back together with the order.
type Tx interface {
	CouponByCode(ctx context.Context, code string) (*Coupon, error)
	// CouponUses returns the aggregate and per-user redemption counters.
	CouponUses(ctx context.Context, code, userID string) (total, byUser int, err error)
	// IncrementCouponUse upserts the per-user counter by one.
	IncrementCouponUse(ctx context.Context, code, userID string) error
}

// Repository provides coupon management outside a checkout transaction.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	// ListCodes returns every issued code, used to prime the generator's
	// collision filter at startup.
	ListCodes(ctx context.Context) ([]string, error)
}
