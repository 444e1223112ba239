package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Amount is a decimal value exactly as it travels on the wire.
// The backend sends amounts as JSON strings ("1180.00"), numbers or null;
// all three decode into the textual form and parsing is left to the ledger.
type Amount string

// UnmarshalJSON accepts a quoted string, a bare number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	*a = Amount(data)
	return nil
}

// String returns the raw textual value.
func (a Amount) String() string {
	return string(a)
}

// Invoice is an inflow payment recorded against a project milestone.
type Invoice struct {
	ID            int64  `json:"id"`
	MilestoneID   int64  `json:"milestone"`
	PartyName     string `json:"party_name"`
	PONumber      string `json:"po_number"`
	InvoiceNumber string `json:"invoice_number"`

	TotalAmount   Amount `json:"total_amount"`   // pre-tax base amount
	GSTPercentage Amount `json:"gst_percentage"` // 0..100
	GSTAmount     Amount `json:"gst_amount"`     // tax-inclusive total, not the tax alone
	PaidAmount    Amount `json:"paid_amount"`
	PendingAmount Amount `json:"pending_amount"`

	PaymentDate string `json:"payment_date,omitempty"`
	Notes       string `json:"notes,omitempty"`

	PaymentHistory []PaymentRecord `json:"payment_history"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// PaymentRecord is one partial payment. Records are immutable once created.
type PaymentRecord struct {
	ID                   int64           `json:"id,omitempty"`
	AmountPaid           Amount          `json:"amount_paid"`
	PaymentDate          string          `json:"payment_date"`
	PaymentMethod        string          `json:"payment_method"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	Attachments          []AttachmentRef `json:"attachments,omitempty"`
	CreatedAt            *time.Time      `json:"created_at,omitempty"`
}

// AttachmentRef points at an uploaded file. The backend returns either a
// bare URL string or an object with id and file fields.
type AttachmentRef struct {
	ID   int64  `json:"id,omitempty"`
	File string `json:"file"`
}

// UnmarshalJSON accepts both the string and the object form.
func (r *AttachmentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.File)
	}
	type plain AttachmentRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = AttachmentRef(p)
	return nil
}
