package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"siteledger/internal/logger"
	"siteledger/pkg/models"
	"siteledger/pkg/services"
)

// DefaultCloseDelay is how long a recorded payment stays visible before
// the form closes itself.
const DefaultCloseDelay = 1500 * time.Millisecond

// State is the lifecycle state of a Recorder.
type State int

const (
	StateEditing State = iota
	StateValidating
	StateRejected
	StateSubmitting
	StateFailed
	StateRecorded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateRejected:
		return "rejected"
	case StateSubmitting:
		return "submitting"
	case StateFailed:
		return "failed"
	case StateRecorded:
		return "recorded"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PaymentDraft is the "record payment" form as entered by the user.
type PaymentDraft struct {
	Amount               string
	PaymentDate          string
	PaymentMethod        string
	TransactionReference string
	Notes                string
	Attachments          []Attachment
}

// Outcome describes a completed Submit call.
type Outcome struct {
	State   State
	Notice  string  // success notice
	Warning error   // non-blocking, e.g. *OversizeError
	Balance Balance // balance after the payment was applied
	Invoice models.Invoice
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithAutoClose closes the recorder delay after a successful payment and
// then calls fn.
func WithAutoClose(delay time.Duration, fn func()) RecorderOption {
	return func(r *Recorder) {
		r.closeDelay = delay
		r.onClose = fn
	}
}

// WithOnRecorded registers a hook that receives the refreshed invoice list
// entry after every successful payment.
func WithOnRecorded(fn func(models.Invoice)) RecorderOption {
	return func(r *Recorder) {
		r.onRecorded = fn
	}
}

// Recorder validates and submits partial payments against one invoice.
//
// Editing -> Validating -> {Rejected, Submitting} -> {Failed, Recorded}.
// A failed submission returns the form to Editing with the draft intact and
// forces the invoice to be re-fetched before the next attempt, since the
// pending amount it validated against may be stale.
type Recorder struct {
	mu  sync.Mutex
	svc services.MilestonePaymentService
	log zerolog.Logger

	invoice models.Invoice
	balance Balance
	draft   PaymentDraft
	state   State

	inFlight     bool
	needsRefresh bool

	onRecorded func(models.Invoice)
	closeDelay time.Duration
	onClose    func()
	closeTimer *time.Timer
}

// NewRecorder opens a payment form for inv. The amount field is pre-filled
// with the pending balance when anything is outstanding.
func NewRecorder(svc services.MilestonePaymentService, inv models.Invoice, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		svc:   svc,
		log:   logger.WithComponent("payment-recorder"),
		state: StateEditing,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.load(inv)
	if s := r.balance.SuggestedPayment(); s.IsPositive() {
		r.draft.Amount = Fixed(s)
	}
	return r
}

func (r *Recorder) load(inv models.Invoice) {
	r.invoice = inv
	r.balance = ResolveInvoice(inv)
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Balance returns the balance the next submission is validated against.
func (r *Recorder) Balance() Balance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

// Draft returns a copy of the form contents.
func (r *Recorder) Draft() PaymentDraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.draft
	d.Attachments = append([]Attachment(nil), r.draft.Attachments...)
	return d
}

// Edit changes the form. Edits are refused while a submission is in flight
// and after the form was closed.
func (r *Recorder) Edit(fn func(*PaymentDraft)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.state == StateClosed:
		return ErrClosed
	case r.inFlight:
		return ErrSubmissionInFlight
	}
	fn(&r.draft)
	r.state = StateEditing
	return nil
}

// Cancel closes the form and discards the draft.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *Recorder) closeLocked() {
	if r.closeTimer != nil {
		r.closeTimer.Stop()
		r.closeTimer = nil
	}
	r.draft = PaymentDraft{}
	r.state = StateClosed
}

// validateLocked runs the submission checks. The amount is rounded to
// currency precision before it is checked and the rounded value is sent.
// warning lists dropped attachments and never blocks submission.
func (r *Recorder) validateLocked() (sub services.PaymentSubmission, warning, err error) {
	d := r.draft

	amountText := strings.TrimSpace(d.Amount)
	if amountText == "" {
		return services.PaymentSubmission{}, nil, NewValidationError("amount_paid", d.Amount, MsgAmountRequired)
	}
	amount, ok := ParseAmount(amountText)
	amount = Round(amount)
	if !ok || !amount.IsPositive() {
		return services.PaymentSubmission{}, nil, NewValidationError("amount_paid", d.Amount, MsgAmountInvalid)
	}
	if amount.GreaterThan(r.balance.Pending) {
		return services.PaymentSubmission{}, nil, NewValidationError("amount_paid", d.Amount,
			fmt.Sprintf(msgAmountExceedsFmt, FormatMoney(r.balance.Pending)))
	}
	if strings.TrimSpace(d.PaymentDate) == "" {
		return services.PaymentSubmission{}, nil, NewValidationError("payment_date", d.PaymentDate, MsgDateRequired)
	}
	if strings.TrimSpace(d.PaymentMethod) == "" {
		return services.PaymentSubmission{}, nil, NewValidationError("payment_method", d.PaymentMethod, MsgMethodRequired)
	}

	kept, warning := FilterAttachments(d.Attachments)

	return services.PaymentSubmission{
		InvoiceID:            r.invoice.ID,
		AmountPaid:           Fixed(amount),
		PaymentDate:          strings.TrimSpace(d.PaymentDate),
		PaymentMethod:        strings.TrimSpace(d.PaymentMethod),
		TransactionReference: strings.TrimSpace(d.TransactionReference),
		Notes:                d.Notes,
		Attachments:          kept,
	}, warning, nil
}

// Submit validates the draft and, when it passes, records the payment.
func (r *Recorder) Submit(ctx context.Context) (Outcome, error) {
	const op = "Submit"

	r.mu.Lock()
	switch {
	case r.state == StateClosed:
		r.mu.Unlock()
		return Outcome{State: StateClosed}, ErrClosed
	case r.inFlight:
		r.mu.Unlock()
		return Outcome{State: r.state}, ErrSubmissionInFlight
	case r.invoice.ID == 0:
		r.mu.Unlock()
		return Outcome{State: r.state}, ErrNoInvoice
	}
	r.inFlight = true
	stale := r.needsRefresh
	current := r.invoice
	r.mu.Unlock()

	if stale {
		fresh, err := r.refresh(ctx, current)
		if err != nil {
			r.mu.Lock()
			r.inFlight = false
			r.state = StateEditing
			r.mu.Unlock()
			return Outcome{State: StateEditing}, &RecordError{Op: op, Message: messageFor(err), Err: err}
		}
		r.mu.Lock()
		r.load(fresh)
		r.needsRefresh = false
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.state = StateValidating
	sub, warning, err := r.validateLocked()
	if err != nil {
		r.state = StateRejected
		r.inFlight = false
		r.mu.Unlock()
		r.log.Debug().Err(err).Int64("invoice_id", current.ID).Msg("Payment rejected by validation")
		return Outcome{State: StateRejected}, err
	}
	r.draft.Attachments = sub.Attachments
	r.state = StateSubmitting
	r.mu.Unlock()

	r.log.Info().
		Int64("invoice_id", sub.InvoiceID).
		Str("amount_paid", sub.AmountPaid).
		Int("attachments", len(sub.Attachments)).
		Msg("Submitting payment")

	resp, err := r.svc.AddPayment(ctx, sub)
	if err == nil && resp != nil && !resp.Status {
		err = &rejectedError{message: resp.Message}
	}
	if err != nil {
		r.mu.Lock()
		r.inFlight = false
		r.needsRefresh = true
		r.state = StateEditing
		r.mu.Unlock()

		msg := messageFor(err)
		r.log.Error().Err(err).Int64("invoice_id", sub.InvoiceID).Str("message", msg).Msg("Payment submission failed")
		return Outcome{State: StateFailed, Warning: warning}, &RecordError{Op: op, Message: msg, Err: err}
	}

	refreshed, refreshErr := r.refresh(ctx, current)
	if refreshErr != nil {
		r.log.Warn().Err(refreshErr).Int64("invoice_id", sub.InvoiceID).Msg("Could not re-fetch invoice, applying payment locally")
		refreshed = current
		refreshed.PaymentHistory = append(append([]models.PaymentRecord(nil), current.PaymentHistory...), models.PaymentRecord{
			AmountPaid:           models.Amount(sub.AmountPaid),
			PaymentDate:          sub.PaymentDate,
			PaymentMethod:        sub.PaymentMethod,
			TransactionReference: sub.TransactionReference,
			Notes:                sub.Notes,
		})
	}

	r.mu.Lock()
	r.load(refreshed)
	if resp != nil {
		if pending, ok := ParseAmount(resp.PendingAmount.String()); ok {
			r.balance.Pending = Round(pending)
			r.balance.TotalPaid = Round(r.balance.TotalWithGST.Sub(pending))
			r.balance.Status = Classify(r.balance.TotalPaid, r.balance.Pending)
		}
	}
	r.inFlight = false
	r.state = StateRecorded
	out := Outcome{
		State:   StateRecorded,
		Notice:  MsgRecordSucceeded,
		Warning: warning,
		Balance: r.balance,
		Invoice: r.invoice,
	}
	if r.onClose != nil {
		r.closeTimer = time.AfterFunc(r.closeDelay, r.autoClose)
	}
	hook := r.onRecorded
	r.mu.Unlock()

	r.log.Info().
		Int64("invoice_id", sub.InvoiceID).
		Str("pending", Fixed(out.Balance.Pending)).
		Str("status", string(out.Balance.Status)).
		Msg("Payment recorded")

	if hook != nil {
		hook(out.Invoice)
	}
	return out, nil
}

func (r *Recorder) autoClose() {
	r.mu.Lock()
	if r.state != StateRecorded {
		r.mu.Unlock()
		return
	}
	r.closeLocked()
	fn := r.onClose
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (r *Recorder) refresh(ctx context.Context, current models.Invoice) (models.Invoice, error) {
	invoices, err := r.svc.ListInvoices(ctx, current.MilestoneID)
	if err != nil {
		return models.Invoice{}, err
	}
	inv, ok := FindInvoice(invoices, current.ID)
	if !ok {
		return models.Invoice{}, fmt.Errorf("invoice %d no longer listed on milestone %d", current.ID, current.MilestoneID)
	}
	return inv, nil
}

// FindInvoice returns the invoice with the given id.
func FindInvoice(invoices []models.Invoice, id int64) (models.Invoice, bool) {
	for _, inv := range invoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return models.Invoice{}, false
}

// rejectedError is a 2xx response whose status flag is false.
type rejectedError struct {
	message string
}

func (e *rejectedError) Error() string {
	if e.message == "" {
		return "request rejected by server"
	}
	return "request rejected by server: " + e.message
}

func (e *rejectedError) ServerMessage() string { return e.message }

// messageFor picks the server-provided message when the error carries one.
func messageFor(err error) string {
	var sm interface{ ServerMessage() string }
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return MsgRecordFailed
}
