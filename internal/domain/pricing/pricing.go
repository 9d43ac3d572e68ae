// Package pricing computes order amounts: per-line costs, the single-line
// coupon discount, tax and the gateway minor-unit total.
package pricing

import (
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Calculator turns line costs into a charged amount under a configured tax
// rate. The rate is a fraction (0.14975 for 14.975%).
type Calculator struct {
	taxRate decimal.Decimal
}

// NewCalculator creates a Calculator with the given tax rate.
func NewCalculator(taxRate decimal.Decimal) *Calculator {
	return &Calculator{taxRate: taxRate}
}

// TaxRate returns the configured rate.
func (c *Calculator) TaxRate() decimal.Decimal {
	return c.taxRate
}

// LineCost is unit price times quantity. Intermediate values are kept at
// full precision; only tax and the final minor-unit amount are rounded.
func LineCost(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ApplyDiscount subtracts a discount from a line cost, flooring at zero.
func ApplyDiscount(cost, discount decimal.Decimal) decimal.Decimal {
	out := cost.Sub(discount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Totals is the fully computed amount for one order.
type Totals struct {
	// Subtotal is the sum of all line costs after discount.
	Subtotal decimal.Decimal
	// Tax is subtotal * rate, rounded to 2 decimal places.
	Tax decimal.Decimal
	// Total is subtotal * (1 + rate), unrounded.
	Total decimal.Decimal
	// AmountMinorUnits is the gateway charge amount in cents, rounded
	// half-up at this final step only.
	AmountMinorUnits int64
}

// Totals sums the given post-discount line costs and derives tax and the
// minor-unit charge amount.
func (c *Calculator) Totals(lineCosts []decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, cost := range lineCosts {
		subtotal = subtotal.Add(cost)
	}
	return c.totalsFromSubtotal(subtotal, c.taxRate)
}

// TaxExemptTotals derives the charge amount without applying tax. Custom
// payments use this; everything else is taxed uniformly.
func (c *Calculator) TaxExemptTotals(amount decimal.Decimal) Totals {
	return c.totalsFromSubtotal(amount, decimal.Zero)
}

func (c *Calculator) totalsFromSubtotal(subtotal, rate decimal.Decimal) Totals {
	tax := subtotal.Mul(rate).Round(2)
	total := subtotal.Mul(one.Add(rate))
	return Totals{
		Subtotal:         subtotal,
		Tax:              tax,
		Total:            total,
		AmountMinorUnits: MinorUnits(total),
	}
}

// MinorUnits converts a decimal money amount into integer cents using
// round-half-up.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
