// Package api is the HTTP client for the project-module milestone payment
// endpoints of the HSE backend.
//
// The client is constructed once from Options holding the base URL and the
// bearer token; nothing is read from the environment at request time. All
// persistence and business rules live on the server, so every write is
// treated as advisory until the server answers with status=true.
//
// Every request carries a fresh X-Request-ID which is also attached to the
// request's log lines.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"siteledger/internal/logger"
)

const (
	// DefaultTimeout bounds every request when Options.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 16 << 20
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://hse.example.com/api.
	BaseURL string

	// Token is sent as "Authorization: Bearer <token>". Empty means no
	// header; the server is expected to answer 401.
	Token string

	// Timeout bounds each request, including reading the response.
	Timeout time.Duration

	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client talks to the milestone payment endpoints.
type Client struct {
	baseURL *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
	log     zerolog.Logger
}

// NewClient validates opts and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	const op = "NewClient"

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base URL must be absolute, got %q", op, opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL: base,
		token:   opts.Token,
		timeout: timeout,
		http:    httpClient,
		log:     logger.WithComponent("api"),
	}, nil
}

// endpoint joins path segments onto the base URL, escaping each one.
func (c *Client) endpoint(segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	return u.String()
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, target, contentType string, body io.Reader, out interface{}) error {
	requestID := uuid.NewString()
	log := logger.WithRequestID("api", requestID)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Error{Op: op, RequestID: requestID, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	log.Debug().Str("op", op).Str("method", method).Str("url", target).Msg("Sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("op", op).Dur("duration", time.Since(start)).Msg("Request failed")
		return &Error{Op: op, RequestID: requestID, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, RequestID: requestID, Err: fmt.Errorf("%w: reading response: %w", ErrTransport, err)}
	}

	log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("Received response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    extractMessage(raw),
			RequestID:  requestID,
			Err:        errorForStatus(resp.StatusCode),
		}
		log.Warn().Err(apiErr).Str("op", op).Msg("Request returned an error status")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, RequestID: requestID, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// doJSON encodes payload as the request body.
func (c *Client) doJSON(ctx context.Context, op, method, target string, payload, out interface{}) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, target, contentType, body, out)
}

// extractMessage pulls a human readable message out of an error body.
// It understands {"message"}, {"detail"}, {"error"} and field error maps
// of the form {"field": ["msg", ...]}.
func extractMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return ""
	}

	var envelope struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		for _, m := range []string{envelope.Message, envelope.Detail, envelope.Error} {
			if m != "" {
				return m
			}
		}
	}

	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fields[k], " "))
	}
	return strings.Join(parts, "; ")
}

// IsAuthError reports whether err came from a 401/403 response.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
