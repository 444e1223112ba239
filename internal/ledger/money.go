// Package ledger derives GST-inclusive totals and outstanding balances for
// milestone invoices and validates partial payments before submission.
//
// Every calculation is a pure function of its inputs. Amounts are handled as
// shopspring decimals and rounded to currency precision (two places) only at
// the points the calculation names, never per term.
//
// Form input arrives as strings. Parsing is lenient: empty or non-numeric
// input never raises an error, it either produces no result (GST) or counts
// as zero (payment history aggregation).
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision every derived amount is rounded to.
const CurrencyPlaces = 2

// CurrencySymbol prefixes amounts in user-facing messages.
var CurrencySymbol = "₹"

// ParseAmount converts user or wire input into a decimal.
// ok is false for empty or non-numeric input.
func ParseAmount(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// AmountOrZero parses s and falls back to zero.
func AmountOrZero(s string) decimal.Decimal {
	d, _ := ParseAmount(s)
	return d
}

// Round rounds to currency precision, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Fixed renders d with exactly two decimals, the form sent to the backend.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}

// FormatMoney renders d for messages, e.g. "₹429.50".
func FormatMoney(d decimal.Decimal) string {
	return CurrencySymbol + Fixed(d)
}
