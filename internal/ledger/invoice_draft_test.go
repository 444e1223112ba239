package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteledger/pkg/models"
)

func validDraft() InvoiceDraft {
	return InvoiceDraft{
		MilestoneID:   7,
		PartyName:     "Acme Builders",
		PONumber:      "PO-1001",
		InvoiceNumber: "INV-42",
		TotalAmount:   "2000",
		GSTPercentage: "12",
		PaidAmount:    "560",
		PaymentDate:   "2026-10-01",
	}
}

func TestInvoiceDraft_Request(t *testing.T) {
	req, err := validDraft().Request()
	require.NoError(t, err)

	assert.Equal(t, int64(7), req.MilestoneID)
	assert.Equal(t, "2000.00", req.TotalAmount)
	assert.Equal(t, "12.00", req.GSTPercentage)
	assert.Equal(t, "2240.00", req.GSTAmount)
	assert.Equal(t, "560.00", req.PaidAmount)
	assert.Equal(t, "1680.00", req.PendingAmount)
	assert.Equal(t, "2026-10-01", req.PaymentDate)
}

func TestInvoiceDraft_RequestAgreesWithItself(t *testing.T) {
	d := validDraft()
	d.TotalAmount = "999.995"
	d.GSTPercentage = "12.345"
	d.PaidAmount = "100.005"

	req, err := d.Request()
	require.NoError(t, err)

	assert.Equal(t, "1000.00", req.TotalAmount)
	assert.Equal(t, "12.35", req.GSTPercentage)
	assert.Equal(t, "1123.50", req.GSTAmount)
	assert.Equal(t, "100.01", req.PaidAmount)
	assert.Equal(t, "1023.49", req.PendingAmount)

	gst, ok := ComputeGST(req.TotalAmount, req.GSTPercentage)
	require.True(t, ok)
	assert.Equal(t, req.GSTAmount, Fixed(gst.TotalWithGST))
	assert.Equal(t, Derived{GSTAmount: req.GSTAmount, PendingAmount: req.PendingAmount}, d.Derive())
}

func TestInvoiceDraft_DeriveIsReactive(t *testing.T) {
	d := validDraft()
	assert.Equal(t, Derived{GSTAmount: "2240.00", PendingAmount: "1680.00"}, d.Derive())

	d.PaidAmount = ""
	assert.Equal(t, Derived{GSTAmount: "2240.00", PendingAmount: "2240.00"}, d.Derive())

	d.GSTPercentage = "18"
	assert.Equal(t, Derived{GSTAmount: "2360.00", PendingAmount: "2360.00"}, d.Derive())

	d.TotalAmount = ""
	assert.Equal(t, Derived{}, d.Derive())
}

func TestInvoiceDraft_MissingFieldsAggregated(t *testing.T) {
	d := validDraft()
	d.PartyName = " "
	d.InvoiceNumber = ""
	d.GSTPercentage = ""

	_, err := d.Request()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"party_name", "invoice_number", "gst_percentage"}, missing.Fields)
	assert.Equal(t, "Please fill in all required fields: party_name, invoice_number, gst_percentage", err.Error())
}

func TestInvoiceDraft_MissingMilestone(t *testing.T) {
	d := validDraft()
	d.MilestoneID = 0

	var missing *MissingFieldsError
	require.ErrorAs(t, d.Validate(), &missing)
	assert.Equal(t, []string{"milestone_id"}, missing.Fields)
}

func TestInvoiceDraft_InvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*InvoiceDraft)
		field string
	}{
		{"zero total", func(d *InvoiceDraft) { d.TotalAmount = "0" }, "total_amount"},
		{"text total", func(d *InvoiceDraft) { d.TotalAmount = "lots" }, "total_amount"},
		{"rate above 100", func(d *InvoiceDraft) { d.GSTPercentage = "120" }, "gst_percentage"},
		{"negative paid", func(d *InvoiceDraft) { d.PaidAmount = "-1" }, "paid_amount"},
		{"paid above total", func(d *InvoiceDraft) { d.PaidAmount = "2240.01" }, "paid_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.edit(&d)

			var verr *ValidationError
			require.ErrorAs(t, d.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDraftFromInvoice(t *testing.T) {
	inv := models.Invoice{
		ID:            3,
		MilestoneID:   9,
		PartyName:     "Acme",
		PONumber:      "PO-9",
		InvoiceNumber: "INV-9",
		TotalAmount:   "1000.00",
		GSTPercentage: "18.00",
		PaidAmount:    "0.00",
	}

	d := DraftFromInvoice(inv)
	assert.Equal(t, int64(9), d.MilestoneID)
	assert.Equal(t, Derived{GSTAmount: "1180.00", PendingAmount: "1180.00"}, d.Derive())
}
