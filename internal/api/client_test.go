package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteledger/internal/logger"
	"siteledger/pkg/models"
	"siteledger/pkg/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	logger.Discard()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL + "/api/", Token: token, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "hse.example.com"})
	assert.Error(t, err)
}

func TestListInvoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/project_module/milestone_id_wise_get_inflow_payment_on_milestone/42", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		_, _ = io.WriteString(w, `{
			"status": true,
			"data": [{
				"id": 5, "milestone": 42, "party_name": "Acme", "invoice_number": "INV-5",
				"total_amount": "1000.00", "gst_percentage": 18, "gst_amount": "1180.00",
				"payment_history": [
					{"id": 1, "amount_paid": "400.00", "payment_date": "2026-09-01", "payment_method": "Cheque",
					 "attachments": ["https://files.example.com/a.pdf", {"id": 9, "file": "https://files.example.com/b.pdf"}]},
					{"id": 2, "amount_paid": 350.5, "payment_date": "2026-09-15", "payment_method": "Bank Transfer"},
					{"id": 3, "amount_paid": null, "payment_date": "2026-09-20", "payment_method": "Cash"}
				]
			}]
		}`)
	}, "secret")

	invoices, err := c.ListInvoices(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	inv := invoices[0]
	assert.Equal(t, int64(5), inv.ID)
	assert.Equal(t, int64(42), inv.MilestoneID)
	assert.Equal(t, models.Amount("18"), inv.GSTPercentage)
	require.Len(t, inv.PaymentHistory, 3)
	assert.Equal(t, models.Amount("400.00"), inv.PaymentHistory[0].AmountPaid)
	assert.Equal(t, models.Amount("350.5"), inv.PaymentHistory[1].AmountPaid)
	assert.Equal(t, models.Amount(""), inv.PaymentHistory[2].AmountPaid)
	require.Len(t, inv.PaymentHistory[0].Attachments, 2)
	assert.Equal(t, "https://files.example.com/a.pdf", inv.PaymentHistory[0].Attachments[0].File)
	assert.Equal(t, int64(9), inv.PaymentHistory[0].Attachments[1].ID)
}

func TestListInvoices_EmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": null}`)
	}, "")

	invoices, err := c.ListInvoices(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, invoices)
	assert.Empty(t, invoices)
}

func TestNoTokenSendsNoAuthorizationHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail": "Authentication credentials were not provided."}`)
	}, "")

	_, err := c.ListInvoices(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Authentication credentials were not provided.", apiErr.ServerMessage())
}

func TestCreateInvoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/project_module/create_inflow_payment_on_milestone", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(7), body["milestone_id"])
		assert.Equal(t, "2240.00", body["gst_amount"])
		assert.Equal(t, "1680.00", body["pending_amount"])
		assert.NotContains(t, body, "notes")

		_, _ = io.WriteString(w, `{"status": true, "message": "Created"}`)
	}, "t")

	resp, err := c.CreateInvoice(context.Background(), models.InflowPaymentRequest{
		MilestoneID:   7,
		PartyName:     "Acme",
		TotalAmount:   "2000.00",
		GSTPercentage: "12.00",
		GSTAmount:     "2240.00",
		PaidAmount:    "560.00",
		PendingAmount: "1680.00",
	})
	require.NoError(t, err)
	assert.True(t, resp.Status)
	assert.Equal(t, "Created", resp.Message)
}

func TestUpdateInvoice_StatusFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/project_module/update_inflow_payment_on_milestone/9", r.URL.Path)
		_, _ = io.WriteString(w, `{"status": false, "message": "Invoice number already exists"}`)
	}, "t")

	resp, err := c.UpdateInvoice(context.Background(), 9, models.InflowPaymentRequest{Notes: "n"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	require.NotNil(t, resp)
	assert.False(t, resp.Status)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invoice number already exists", apiErr.ServerMessage())
}

func TestServerErrorWithFieldErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"po_number": ["This field may not be blank."], "amount_paid": ["Too large."]}`)
	}, "t")

	_, err := c.CreateInvoice(context.Background(), models.InflowPaymentRequest{})
	assert.ErrorIs(t, err, ErrBadRequest)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "amount_paid: Too large.; po_number: This field may not be blank.", apiErr.Message)
}

func TestServerError5xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, "t")

	_, err := c.ListInvoices(context.Background(), 1)
	assert.ErrorIs(t, err, ErrServer)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.ServerMessage())
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	logger.Discard()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListInvoices(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAddPayment_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/project_module/add_payment_on_milestone", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "11", r.FormValue("inflow_payment"))
		assert.Equal(t, "429.50", r.FormValue("amount_paid"))
		assert.Equal(t, "2026-10-16", r.FormValue("payment_date"))
		assert.Equal(t, "Bank Transfer", r.FormValue("payment_method"))

		// optional fields are sent empty rather than omitted
		assert.Contains(t, r.MultipartForm.Value, "transaction_reference")
		assert.Contains(t, r.MultipartForm.Value, "notes")
		assert.Equal(t, "", r.FormValue("notes"))

		files := r.MultipartForm.File["attachments"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.pdf", files[0].Filename)
		assert.Equal(t, "b.jpg", files[1].Filename)

		f, err := files[1].Open()
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "jpeg-bytes", string(content))

		_, _ = io.WriteString(w, `{"status": true, "message": "Payment added", "pending_amount": "0.00"}`)
	}, "t")

	resp, err := c.AddPayment(context.Background(), services.PaymentSubmission{
		InvoiceID:     11,
		AmountPaid:    "429.50",
		PaymentDate:   "2026-10-16",
		PaymentMethod: "Bank Transfer",
		Attachments: []services.Upload{
			memUpload("a.pdf", "pdf-bytes"),
			memUpload("b.jpg", "jpeg-bytes"),
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Status)
	assert.Equal(t, models.Amount("0.00"), resp.PendingAmount)
}

func TestAddPayment_AttachmentOpenFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, "t")

	_, err := c.AddPayment(context.Background(), services.PaymentSubmission{
		InvoiceID: 1,
		Attachments: []services.Upload{{
			Name: "gone.pdf",
			Open: func() (io.ReadCloser, error) { return nil, errors.New("file removed") },
		}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone.pdf")
}

func memUpload(name, content string) services.Upload {
	return services.Upload{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}
