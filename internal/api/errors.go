package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Common API errors
var (
	// ErrUnauthorized is returned on 401/403, usually a missing or expired token.
	ErrUnauthorized = errors.New("not authorized, check SITELEDGER_API_TOKEN")

	// ErrNotFound is returned on 404.
	ErrNotFound = errors.New("resource not found")

	// ErrRejected is returned when the server answers 2xx with status=false.
	ErrRejected = errors.New("request rejected by server")

	// ErrServer is returned on 5xx responses.
	ErrServer = errors.New("server error")

	// ErrBadRequest is returned on other 4xx responses.
	ErrBadRequest = errors.New("request not accepted")

	// ErrTransport is returned when no response was received at all.
	ErrTransport = errors.New("request failed before a response was received")
)

// Error wraps a failed API call with the HTTP status and the message the
// server sent, if any.
type Error struct {
	// Op is the client method that failed (e.g., "AddPayment").
	Op string

	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int

	// Message is the server-provided message.
	Message string

	// RequestID is the X-Request-ID sent with the request.
	RequestID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("api: %s failed (HTTP %d): %s", e.Op, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("api: %s failed: %s", e.Op, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("api: %s failed (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("api: %s failed: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// ServerMessage returns the message to show the user, empty when the
// server did not provide one.
func (e *Error) ServerMessage() string {
	return e.Message
}

// errorForStatus maps an HTTP status code to a sentinel.
func errorForStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}
