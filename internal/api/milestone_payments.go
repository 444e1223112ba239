package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"siteledger/pkg/models"
	"siteledger/pkg/services"
)

const (
	pathCreateInvoice = "create_inflow_payment_on_milestone"
	pathUpdateInvoice = "update_inflow_payment_on_milestone"
	pathListInvoices  = "milestone_id_wise_get_inflow_payment_on_milestone"
	pathAddPayment    = "add_payment_on_milestone"
	projectModule     = "project_module"
)

var _ services.MilestonePaymentService = (*Client)(nil)

// ListInvoices fetches every invoice of a milestone with its payment history.
func (c *Client) ListInvoices(ctx context.Context, milestoneID int64) ([]models.Invoice, error) {
	const op = "ListInvoices"

	var resp models.InvoiceListResponse
	target := c.endpoint(projectModule, pathListInvoices, strconv.FormatInt(milestoneID, 10))
	if err := c.doJSON(ctx, op, http.MethodGet, target, nil, &resp); err != nil {
		return nil, err
	}

	c.log.Debug().
		Int64("milestone_id", milestoneID).
		Int("invoices", len(resp.Data)).
		Msg("Listed milestone invoices")

	if resp.Data == nil {
		return []models.Invoice{}, nil
	}
	return resp.Data, nil
}

// CreateInvoice records a new inflow invoice.
func (c *Client) CreateInvoice(ctx context.Context, req models.InflowPaymentRequest) (*models.StatusResponse, error) {
	const op = "CreateInvoice"

	target := c.endpoint(projectModule, pathCreateInvoice)
	return c.write(ctx, op, http.MethodPost, target, req)
}

// UpdateInvoice sends a partial update for an existing invoice.
func (c *Client) UpdateInvoice(ctx context.Context, invoiceID int64, req models.InflowPaymentRequest) (*models.StatusResponse, error) {
	const op = "UpdateInvoice"

	target := c.endpoint(projectModule, pathUpdateInvoice, strconv.FormatInt(invoiceID, 10))
	return c.write(ctx, op, http.MethodPut, target, req)
}

func (c *Client) write(ctx context.Context, op, method, target string, payload interface{}) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.doJSON(ctx, op, method, target, payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return &resp, &Error{Op: op, StatusCode: http.StatusOK, Message: resp.Message, Err: ErrRejected}
	}
	return &resp, nil
}

// AddPayment uploads one partial payment as a multipart form.
func (c *Client) AddPayment(ctx context.Context, p services.PaymentSubmission) (*models.StatusResponse, error) {
	const op = "AddPayment"

	body, contentType, err := encodePayment(p)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	c.log.Info().
		Int64("invoice_id", p.InvoiceID).
		Str("amount_paid", p.AmountPaid).
		Int("attachments", len(p.Attachments)).
		Int("bytes", body.Len()).
		Msg("Uploading payment")

	var resp models.StatusResponse
	target := c.endpoint(projectModule, pathAddPayment)
	if err := c.do(ctx, op, http.MethodPost, target, contentType, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return &resp, &Error{Op: op, StatusCode: http.StatusOK, Message: resp.Message, Err: ErrRejected}
	}
	return &resp, nil
}

// encodePayment builds the multipart body. Optional text fields are always
// present, empty when unset; each attachment becomes its own part.
func encodePayment(p services.PaymentSubmission) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := []struct{ name, value string }{
		{"inflow_payment", strconv.FormatInt(p.InvoiceID, 10)},
		{"amount_paid", p.AmountPaid},
		{"payment_date", p.PaymentDate},
		{"payment_method", p.PaymentMethod},
		{"transaction_reference", p.TransactionReference},
		{"notes", p.Notes},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.name, err)
		}
	}

	for _, a := range p.Attachments {
		if err := writeAttachment(w, a); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func writeAttachment(w *multipart.Writer, a services.Upload) error {
	if a.Open == nil {
		return fmt.Errorf("attachment %s has no content", a.Name)
	}
	src, err := a.Open()
	if err != nil {
		return fmt.Errorf("opening attachment %s: %w", a.Name, err)
	}
	defer src.Close()

	part, err := w.CreateFormFile("attachments", a.Name)
	if err != nil {
		return fmt.Errorf("creating part for %s: %w", a.Name, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copying attachment %s: %w", a.Name, err)
	}
	return nil
}
