package services

import (
	"context"
	"io"

	"siteledger/pkg/models"
)

// MilestonePaymentService defines the remote operations on milestone invoices
type MilestonePaymentService interface {
	// ListInvoices returns every invoice recorded against a milestone,
	// each with its embedded payment history
	ListInvoices(ctx context.Context, milestoneID int64) ([]models.Invoice, error)

	// CreateInvoice records a new inflow invoice on a milestone
	CreateInvoice(ctx context.Context, req models.InflowPaymentRequest) (*models.StatusResponse, error)

	// UpdateInvoice applies a partial update to an existing invoice
	UpdateInvoice(ctx context.Context, invoiceID int64, req models.InflowPaymentRequest) (*models.StatusResponse, error)

	// AddPayment appends a partial payment, with optional file attachments,
	// to an invoice's payment history
	AddPayment(ctx context.Context, payment PaymentSubmission) (*models.StatusResponse, error)
}

// PaymentSubmission is the multipart payload for recording a payment
type PaymentSubmission struct {
	InvoiceID            int64
	AmountPaid           string
	PaymentDate          string
	PaymentMethod        string
	TransactionReference string
	Notes                string
	Attachments          []Upload
}

// Upload is a file to be sent as one "attachments" part
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}
