package ledger

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
)

// GST is the result of applying a GST rate to a base amount.
type GST struct {
	Base         decimal.Decimal
	Rate         decimal.Decimal
	Tax          decimal.Decimal // base * rate / 100, rounded
	TotalWithGST decimal.Decimal // base + tax, rounded
}

// ComputeGST derives the tax and the tax-inclusive total from form input.
// It reports ok=false, leaving dependent fields blank, when either input is
// empty or invalid, the base is negative or the rate is outside [0, 100].
func ComputeGST(totalAmount, gstPercentage string) (GST, bool) {
	base, ok := ParseAmount(totalAmount)
	if !ok {
		return GST{}, false
	}
	rate, ok := ParseAmount(gstPercentage)
	if !ok {
		return GST{}, false
	}
	return ApplyGST(base, rate)
}

// ApplyGST is ComputeGST for already parsed values.
func ApplyGST(base, rate decimal.Decimal) (GST, bool) {
	if base.IsNegative() || rate.IsNegative() || rate.GreaterThan(hundred) {
		return GST{}, false
	}

	tax := Round(base.Mul(rate).Div(hundred))
	return GST{
		Base:         base,
		Rate:         rate,
		Tax:          tax,
		TotalWithGST: Round(base.Add(tax)),
	}, true
}
