package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Redemption is the outcome of a successful coupon application.
type Redemption struct {
	Coupon *Coupon
	// LineIndex is the index of the discounted line within the slice passed
	// to ValidateAndApply. Only one line is ever discounted.
	LineIndex int
	// Discount is the absolute amount subtracted from that line's cost,
	// clamped to the line cost and rounded to 2 decimal places.
	Discount decimal.Decimal
}

// Engine validates and redeems coupons against an order's lines.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a coupon Engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// ValidateAndApply looks up the coupon, picks the first eligible line,
// enforces the global and per-user redemption caps, computes the discount
// and increments the user's usage counter. It must be called inside the
// order's enclosing transaction: the counter increment commits or rolls back
// together with everything else.
//
// When several lines are eligible, the first match wins; there is no
// ambiguity rejection.
func (e *Engine) ValidateAndApply(ctx context.Context, tx Tx, code, userID string, lines []Line) (*Redemption, error) {
	c, err := tx.CouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrNotFound
	}

	now := e.now()
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return nil, ErrExpired
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return nil, ErrExpired
	}

	target := -1
	for i, line := range lines {
		if c.AppliesTo(line.Ref) {
			target = i
			break
		}
	}
	if target < 0 {
		return nil, ErrNoEligibleLine
	}

	// The lookup is case-insensitive; count and record usage under the
	// canonical stored code so caps cannot be bypassed by retyping the
	// code in a different casing.
	total, byUser, err := tx.CouponUses(ctx, c.Code, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load coupon usage")
	}
	// A cap of zero means uncapped.
	if c.MaxUse > 0 && total >= c.MaxUse {
		return nil, ErrExhausted
	}
	if c.MaxUsePerUser > 0 && byUser >= c.MaxUsePerUser {
		return nil, ErrUserExhausted
	}

	discount := e.discountFor(c, lines[target].Cost)

	if err := tx.IncrementCouponUse(ctx, c.Code, userID); err != nil {
		return nil, errors.Wrap(err, "increment coupon use")
	}

	return &Redemption{Coupon: c, LineIndex: target, Discount: discount}, nil
}

// discountFor computes the absolute discount for a line of the given cost:
// the coupon's value, or cost * percent_off / 100. The result never exceeds
// the line's own cost and is never negative.
func (e *Engine) discountFor(c *Coupon, cost decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	if c.IsPercent() {
		d = cost.Mul(decimal.NewFromInt(int64(c.PercentOff))).Div(hundred)
	} else {
		d = c.Value
	}
	d = decimal.Min(d, cost)
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2)
}
