package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"siteledger/pkg/models"
)

// InvoiceDraft holds the create/edit form for a milestone invoice.
// All values are kept as entered; derived amounts are recomputed on demand.
type InvoiceDraft struct {
	MilestoneID   int64
	PartyName     string
	PONumber      string
	InvoiceNumber string
	TotalAmount   string
	GSTPercentage string
	PaidAmount    string
	PaymentDate   string
	Notes         string
}

// DraftFromInvoice seeds an edit form with an existing invoice.
func DraftFromInvoice(inv models.Invoice) InvoiceDraft {
	return InvoiceDraft{
		MilestoneID:   inv.MilestoneID,
		PartyName:     inv.PartyName,
		PONumber:      inv.PONumber,
		InvoiceNumber: inv.InvoiceNumber,
		TotalAmount:   inv.TotalAmount.String(),
		GSTPercentage: inv.GSTPercentage.String(),
		PaidAmount:    inv.PaidAmount.String(),
		PaymentDate:   inv.PaymentDate,
		Notes:         inv.Notes,
	}
}

// Derived holds the values computed from the draft. Fields are empty
// strings when their inputs are incomplete.
type Derived struct {
	GSTAmount     string // tax-inclusive total, sent as gst_amount
	PendingAmount string
}

// Derive recomputes gst_amount and pending_amount from the current input.
// Inputs are rounded to currency precision first, so the derived values
// agree with the amounts sent alongside them.
func (d InvoiceDraft) Derive() Derived {
	gst, ok := d.gst()
	if !ok {
		return Derived{}
	}
	paid := Round(AmountOrZero(d.PaidAmount))
	return Derived{
		GSTAmount:     Fixed(gst.TotalWithGST),
		PendingAmount: Fixed(Round(gst.TotalWithGST.Sub(paid))),
	}
}

func (d InvoiceDraft) gst() (GST, bool) {
	total, ok := ParseAmount(d.TotalAmount)
	if !ok {
		return GST{}, false
	}
	rate, ok := ParseAmount(d.GSTPercentage)
	if !ok {
		return GST{}, false
	}
	return ApplyGST(Round(total), Round(rate))
}

// Validate reports every empty required field in one error. It also
// rejects numeric fields that cannot be parsed or are out of range.
func (d InvoiceDraft) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"party_name", d.PartyName},
		{"po_number", d.PONumber},
		{"invoice_number", d.InvoiceNumber},
		{"total_amount", d.TotalAmount},
		{"gst_percentage", d.GSTPercentage},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if d.MilestoneID <= 0 {
		missing = append([]string{"milestone_id"}, missing...)
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	total, ok := ParseAmount(d.TotalAmount)
	if !ok || !Round(total).IsPositive() {
		return NewValidationError("total_amount", d.TotalAmount, "Total amount must be a number greater than 0")
	}
	rate, ok := ParseAmount(d.GSTPercentage)
	if !ok || rate.IsNegative() || Round(rate).GreaterThan(hundred) {
		return NewValidationError("gst_percentage", d.GSTPercentage, "GST percentage must be between 0 and 100")
	}
	if strings.TrimSpace(d.PaidAmount) != "" {
		paid, ok := ParseAmount(d.PaidAmount)
		if !ok || paid.IsNegative() {
			return NewValidationError("paid_amount", d.PaidAmount, MsgAmountInvalid)
		}
		gst, _ := ApplyGST(Round(total), Round(rate))
		if Round(paid).GreaterThan(gst.TotalWithGST) {
			return NewValidationError("paid_amount", d.PaidAmount, "Paid amount cannot exceed "+FormatMoney(gst.TotalWithGST))
		}
	}
	return nil
}

// Request validates the draft and builds the create/update body.
func (d InvoiceDraft) Request() (models.InflowPaymentRequest, error) {
	if err := d.Validate(); err != nil {
		return models.InflowPaymentRequest{}, err
	}

	derived := d.Derive()
	paid := decimal.Zero
	if p, ok := ParseAmount(d.PaidAmount); ok {
		paid = p
	}

	return models.InflowPaymentRequest{
		MilestoneID:   d.MilestoneID,
		PartyName:     strings.TrimSpace(d.PartyName),
		PONumber:      strings.TrimSpace(d.PONumber),
		InvoiceNumber: strings.TrimSpace(d.InvoiceNumber),
		TotalAmount:   Fixed(Round(AmountOrZero(d.TotalAmount))),
		GSTPercentage: Fixed(Round(AmountOrZero(d.GSTPercentage))),
		GSTAmount:     derived.GSTAmount,
		PaidAmount:    Fixed(Round(paid)),
		PendingAmount: derived.PendingAmount,
		PaymentDate:   strings.TrimSpace(d.PaymentDate),
		Notes:         d.Notes,
	}, nil
}
