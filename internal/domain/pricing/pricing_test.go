package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestLineCost(t *testing.T) {
	assert.True(t, d("150.00").Equal(LineCost(d("50.00"), 3)))
	assert.True(t, d("19.99").Equal(LineCost(d("19.99"), 1)))
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name     string
		cost     string
		discount string
		want     string
	}{
		{"partial", "20.00", "2.00", "18.00"},
		{"full", "20.00", "20.00", "0"},
		{"over", "20.00", "25.00", "0"},
		{"zero discount", "20.00", "0", "20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDiscount(d(tt.cost), d(tt.discount))
			assert.True(t, d(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestCalculatorTotals(t *testing.T) {
	calc := NewCalculator(d("0.14975"))

	totals := calc.Totals([]decimal.Decimal{d("50.00"), d("30.00")})

	assert.True(t, d("80.00").Equal(totals.Subtotal), "subtotal %s", totals.Subtotal)
	// 80 * 0.14975 = 11.98
	assert.True(t, d("11.98").Equal(totals.Tax), "tax %s", totals.Tax)
	// 80 * 1.14975 = 91.98, unrounded.
	assert.True(t, d("91.98").Equal(totals.Total), "total %s", totals.Total)
	assert.Equal(t, int64(9198), totals.AmountMinorUnits)
}

func TestCalculatorTotals_RoundsOnlyAtTheEnd(t *testing.T) {
	calc := NewCalculator(d("0.14975"))

	// 33.33 * 1.14975 = 38.32116... -> 3832 cents.
	totals := calc.Totals([]decimal.Decimal{d("33.33")})

	require.Equal(t, int64(3832), totals.AmountMinorUnits)
	// Tax rounds independently of the total: 33.33 * 0.14975 = 4.9912... -> 4.99.
	assert.True(t, d("4.99").Equal(totals.Tax), "tax %s", totals.Tax)
}

func TestCalculatorTotals_DiscountedLine(t *testing.T) {
	calc := NewCalculator(d("0.10"))

	// A 20.00 line with a 10% coupon costs 18.00 before tax.
	cost := ApplyDiscount(d("20.00"), d("2.00"))
	totals := calc.Totals([]decimal.Decimal{cost})

	assert.True(t, d("18.00").Equal(totals.Subtotal))
	assert.True(t, d("1.80").Equal(totals.Tax))
	assert.Equal(t, int64(1980), totals.AmountMinorUnits)
}

func TestTaxExemptTotals(t *testing.T) {
	calc := NewCalculator(d("0.14975"))

	totals := calc.TaxExemptTotals(d("45.50"))

	assert.True(t, d("45.50").Equal(totals.Subtotal))
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, d("45.50").Equal(totals.Total))
	assert.Equal(t, int64(4550), totals.AmountMinorUnits)
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"10.00", 1000},
		{"10.005", 1001},
		{"10.004", 1000},
		{"0", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MinorUnits(d(tt.amount)), "amount %s", tt.amount)
	}
}
