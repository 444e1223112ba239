package models

// InflowPaymentRequest is the JSON body for creating or updating an invoice.
// Amounts are sent as fixed two-decimal strings. Empty fields are omitted,
// which makes the same shape usable for partial updates.
type InflowPaymentRequest struct {
	MilestoneID   int64  `json:"milestone_id,omitempty"`
	PartyName     string `json:"party_name,omitempty"`
	PONumber      string `json:"po_number,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	TotalAmount   string `json:"total_amount,omitempty"`
	GSTPercentage string `json:"gst_percentage,omitempty"`
	GSTAmount     string `json:"gst_amount,omitempty"`
	PaidAmount    string `json:"paid_amount,omitempty"`
	PendingAmount string `json:"pending_amount,omitempty"`
	PaymentDate   string `json:"payment_date,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// StatusResponse is the envelope returned by every write endpoint.
// PendingAmount is only present on backends that report the authoritative
// balance after a write.
type StatusResponse struct {
	Status        bool   `json:"status"`
	Message       string `json:"message,omitempty"`
	PendingAmount Amount `json:"pending_amount,omitempty"`
}

// InvoiceListResponse is the envelope of the milestone invoice listing.
type InvoiceListResponse struct {
	Status  bool      `json:"status"`
	Message string    `json:"message,omitempty"`
	Data    []Invoice `json:"data"`
}
