package ledger

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"siteledger/pkg/models"
)

// Status classifies how much of an invoice has been settled.
type Status string

const (
	StatusUnpaid  Status = "Unpaid"
	StatusPartial Status = "Partial"
	StatusPaid    Status = "Paid"
)

// Balance is the derived, never stored, state of an invoice.
type Balance struct {
	TotalWithGST decimal.Decimal
	TotalPaid    decimal.Decimal
	Pending      decimal.Decimal
	Status       Status
	Payments     int
}

// TotalPaid sums amount_paid over the history. Missing or non-numeric
// amounts count as zero; the sum is rounded once, at the end.
func TotalPaid(history []models.PaymentRecord) decimal.Decimal {
	sum := lo.Reduce(history, func(acc decimal.Decimal, p models.PaymentRecord, _ int) decimal.Decimal {
		return acc.Add(AmountOrZero(p.AmountPaid.String()))
	}, decimal.Zero)
	return Round(sum)
}

// Resolve computes the outstanding balance of an invoice whose
// tax-inclusive total is totalWithGST.
func Resolve(totalWithGST decimal.Decimal, history []models.PaymentRecord) Balance {
	paid := TotalPaid(history)
	pending := Round(totalWithGST.Sub(paid))
	return Balance{
		TotalWithGST: totalWithGST,
		TotalPaid:    paid,
		Pending:      pending,
		Status:       Classify(paid, pending),
		Payments:     len(history),
	}
}

// Classify maps paid and pending amounts to a Status.
// Paid wins when both conditions hold (a zero-value invoice).
func Classify(totalPaid, pending decimal.Decimal) Status {
	switch {
	case !pending.IsPositive():
		return StatusPaid
	case totalPaid.IsZero():
		return StatusUnpaid
	default:
		return StatusPartial
	}
}

// InvoiceTotal returns the tax-inclusive total of a wire invoice.
// The backend stores that total in gst_amount; when it is blank the total
// is recomputed from total_amount and gst_percentage.
func InvoiceTotal(inv models.Invoice) decimal.Decimal {
	if total, ok := ParseAmount(inv.GSTAmount.String()); ok {
		return total
	}
	if gst, ok := ComputeGST(inv.TotalAmount.String(), inv.GSTPercentage.String()); ok {
		return gst.TotalWithGST
	}
	return AmountOrZero(inv.TotalAmount.String())
}

// ResolveInvoice is Resolve applied to a wire invoice.
func ResolveInvoice(inv models.Invoice) Balance {
	return Resolve(InvoiceTotal(inv), inv.PaymentHistory)
}

// SuggestedPayment is the default for the "record payment" amount field:
// the full pending balance, or zero when nothing is outstanding.
func (b Balance) SuggestedPayment() decimal.Decimal {
	if b.Pending.IsPositive() {
		return b.Pending
	}
	return decimal.Zero
}
