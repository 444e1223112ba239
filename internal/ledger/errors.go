package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// User-facing validation messages.
const (
	MsgAmountRequired   = "Payment amount is required"
	MsgAmountInvalid    = "Please enter a valid amount"
	MsgDateRequired     = "Payment date is required"
	MsgMethodRequired   = "Payment method is required"
	MsgRequiredFields   = "Please fill in all required fields"
	MsgRecordFailed     = "Failed to record payment"
	MsgRecordSucceeded  = "Payment recorded successfully"
	msgAmountExceedsFmt = "Amount cannot exceed pending amount of %s"
)

var (
	// ErrValidation marks every client-local validation failure.
	// No network call is made when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrSubmissionInFlight is returned when Submit is called while a
	// previous submission has not completed.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	// ErrNoInvoice is returned when the recorder has no invoice loaded.
	ErrNoInvoice = errors.New("no invoice selected")

	// ErrClosed is returned by operations on a cancelled recorder.
	ErrClosed = errors.New("payment form is closed")
)

// ValidationError is a client-local validation failure on one field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// MissingFieldsError aggregates every empty required field of a form into
// one notice instead of one error per field.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: %s", MsgRequiredFields, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrValidation
}

// OversizeError names the attachments that were dropped for exceeding the
// size limit. It is a warning: the remaining files are still submitted.
type OversizeError struct {
	Files []string
	Limit int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("The following files exceed the %dMB limit and were skipped: %s",
		e.Limit/(1024*1024), strings.Join(e.Files, ", "))
}

// RecordError wraps a failed payment submission with the message that
// should be shown to the user.
type RecordError struct {
	// Op is the operation that failed (e.g., "Submit").
	Op string

	// Message is the server-provided message, or the generic fallback.
	Message string

	// Err is the underlying error.
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("ledger: %s failed: %s: %v", e.Op, e.Message, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
