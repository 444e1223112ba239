// Package report renders milestone reconciliation summaries for the terminal
// and as machine-readable documents.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"siteledger/internal/ledger"
	"siteledger/internal/reconciliation"
)

// Format selects how a summary is written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts table, json, yaml and yml, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (want table, json or yaml)", ErrUnknownFormat, name)
	}
}

// Write renders s to w in the given format.
func Write(w io.Writer, s *reconciliation.Summary, format Format) error {
	switch format {
	case FormatTable:
		_, err := io.WriteString(w, RenderTable(s))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(s))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(s)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Document is the serialised form of a summary. Amounts are strings with two
// decimals so no precision is lost in transit.
type Document struct {
	MilestoneID int64        `json:"milestone_id" yaml:"milestone_id"`
	Source      string       `json:"source" yaml:"source"`
	FetchedAt   string       `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
	Totals      TotalsDoc    `json:"totals" yaml:"totals"`
	Invoices    []InvoiceDoc `json:"invoices" yaml:"invoices"`
}

// TotalsDoc is the serialised form of reconciliation.Totals.
type TotalsDoc struct {
	Invoices int            `json:"invoices" yaml:"invoices"`
	Invoiced string         `json:"invoiced" yaml:"invoiced"`
	Paid     string         `json:"paid" yaml:"paid"`
	Pending  string         `json:"pending" yaml:"pending"`
	ByStatus map[string]int `json:"by_status" yaml:"by_status"`
}

// InvoiceDoc is the serialised form of one reconciliation row.
type InvoiceDoc struct {
	ID              int64  `json:"id" yaml:"id"`
	InvoiceNumber   string `json:"invoice_number" yaml:"invoice_number"`
	PartyName       string `json:"party_name" yaml:"party_name"`
	PONumber        string `json:"po_number,omitempty" yaml:"po_number,omitempty"`
	TotalAmount     string `json:"total_amount" yaml:"total_amount"`
	GSTPercentage   string `json:"gst_percentage" yaml:"gst_percentage"`
	TotalWithGST    string `json:"total_with_gst" yaml:"total_with_gst"`
	Paid            string `json:"paid" yaml:"paid"`
	Pending         string `json:"pending" yaml:"pending"`
	Status          string `json:"status" yaml:"status"`
	Payments        int    `json:"payments" yaml:"payments"`
	LastPaymentDate string `json:"last_payment_date,omitempty" yaml:"last_payment_date,omitempty"`
}

// NewDocument converts a summary for encoding.
func NewDocument(s *reconciliation.Summary) Document {
	doc := Document{
		MilestoneID: s.MilestoneID,
		Source:      string(s.Source),
		Totals: TotalsDoc{
			Invoices: s.Totals.Invoices,
			Invoiced: ledger.Fixed(s.Totals.Invoiced),
			Paid:     ledger.Fixed(s.Totals.Paid),
			Pending:  ledger.Fixed(s.Totals.Pending),
			ByStatus: make(map[string]int, len(s.Totals.ByStatus)),
		},
		Invoices: make([]InvoiceDoc, 0, len(s.Rows)),
	}
	if !s.FetchedAt.IsZero() {
		doc.FetchedAt = s.FetchedAt.UTC().Format(time.RFC3339)
	}
	for status, n := range s.Totals.ByStatus {
		doc.Totals.ByStatus[string(status)] = n
	}
	for _, r := range s.Rows {
		doc.Invoices = append(doc.Invoices, InvoiceDoc{
			ID:              r.InvoiceID,
			InvoiceNumber:   r.InvoiceNumber,
			PartyName:       r.PartyName,
			PONumber:        r.PONumber,
			TotalAmount:     ledger.Fixed(r.Base),
			GSTPercentage:   r.GSTRate.String(),
			TotalWithGST:    ledger.Fixed(r.TotalWithGST),
			Paid:            ledger.Fixed(r.Paid),
			Pending:         ledger.Fixed(r.Pending),
			Status:          string(r.Status),
			Payments:        r.Payments,
			LastPaymentDate: r.LastPaymentDate,
		})
	}
	return doc
}
