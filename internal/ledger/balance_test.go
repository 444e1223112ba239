package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"siteledger/pkg/models"
)

func history(amounts ...string) []models.PaymentRecord {
	records := make([]models.PaymentRecord, 0, len(amounts))
	for _, a := range amounts {
		records = append(records, models.PaymentRecord{AmountPaid: models.Amount(a), PaymentMethod: "Bank Transfer"})
	}
	return records
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalPaid(t *testing.T) {
	assert.Equal(t, "750.50", Fixed(TotalPaid(history("400.00", "350.50"))))
	assert.Equal(t, "0.00", Fixed(TotalPaid(nil)))
}

func TestTotalPaid_InvalidAmountsCountAsZero(t *testing.T) {
	assert.Equal(t, "100.00", Fixed(TotalPaid(history("100", "", "n/a"))))
}

func TestTotalPaid_RoundsOnlyTheAggregate(t *testing.T) {
	// per-term rounding would give 0.01 + 0.01 + 0.01 = 0.03
	assert.Equal(t, "0.02", Fixed(TotalPaid(history("0.005", "0.005", "0.005"))))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		total       string
		history     []models.PaymentRecord
		wantPaid    string
		wantPending string
		wantStatus  Status
	}{
		{"partial", "1180.00", history("400.00", "350.50"), "750.50", "429.50", StatusPartial},
		{"unpaid", "1180.00", nil, "0.00", "1180.00", StatusUnpaid},
		{"paid exactly", "1180.00", history("1180"), "1180.00", "0.00", StatusPaid},
		{"overpaid", "100.00", history("60", "50"), "110.00", "-10.00", StatusPaid},
		{"zero-value invoice", "0", nil, "0.00", "0.00", StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Resolve(dec(tt.total), tt.history)
			assert.Equal(t, tt.wantPaid, Fixed(b.TotalPaid))
			assert.Equal(t, tt.wantPending, Fixed(b.Pending))
			assert.Equal(t, tt.wantStatus, b.Status)
			assert.Equal(t, len(tt.history), b.Payments)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	h := history("400.00", "350.50")
	assert.Equal(t, Resolve(dec("1180"), h), Resolve(dec("1180"), h))
}

func TestInvoiceTotal(t *testing.T) {
	t.Run("uses gst_amount as the inclusive total", func(t *testing.T) {
		inv := models.Invoice{TotalAmount: "1000", GSTPercentage: "18", GSTAmount: "1180.00"}
		assert.Equal(t, "1180.00", Fixed(InvoiceTotal(inv)))
	})
	t.Run("recomputes when gst_amount is blank", func(t *testing.T) {
		inv := models.Invoice{TotalAmount: "2000", GSTPercentage: "12"}
		assert.Equal(t, "2240.00", Fixed(InvoiceTotal(inv)))
	})
	t.Run("falls back to the base amount", func(t *testing.T) {
		inv := models.Invoice{TotalAmount: "500"}
		assert.Equal(t, "500.00", Fixed(InvoiceTotal(inv)))
	})
}

func TestSuggestedPayment(t *testing.T) {
	assert.Equal(t, "429.50", Fixed(Resolve(dec("1180"), history("750.50")).SuggestedPayment()))
	assert.True(t, Resolve(dec("100"), history("100")).SuggestedPayment().IsZero())
}
