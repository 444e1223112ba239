package reconciliation

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"siteledger/internal/ledger"
)

// Source names where the invoices of a summary came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceSnapshot Source = "snapshot"
)

// InvoiceRow is the reconciled state of one invoice.
type InvoiceRow struct {
	InvoiceID       int64
	InvoiceNumber   string
	PartyName       string
	PONumber        string
	Base            decimal.Decimal // pre-tax total_amount
	GSTRate         decimal.Decimal
	TotalWithGST    decimal.Decimal
	Paid            decimal.Decimal
	Pending         decimal.Decimal
	Status          ledger.Status
	Payments        int
	LastPaymentDate string // ISO date of the newest payment, empty when none
}

// Totals aggregates every row of a milestone.
type Totals struct {
	Invoices int
	Invoiced decimal.Decimal
	Paid     decimal.Decimal
	Pending  decimal.Decimal
	ByStatus map[ledger.Status]int
}

// Summary is the reconciliation of a single milestone.
type Summary struct {
	MilestoneID int64
	Source      Source
	FetchedAt   time.Time
	Rows        []InvoiceRow
	Totals      Totals
}

// IsSettled reports whether nothing is outstanding on the row.
func (r *InvoiceRow) IsSettled() bool {
	return r.Status == ledger.StatusPaid
}

// Overpaid reports whether payments exceed the tax-inclusive total.
func (r *InvoiceRow) Overpaid() bool {
	return r.Pending.IsNegative()
}

// Outstanding returns the rows that still have a pending balance.
func (s *Summary) Outstanding() []InvoiceRow {
	var rows []InvoiceRow
	for _, r := range s.Rows {
		if !r.IsSettled() {
			rows = append(rows, r)
		}
	}
	return rows
}

// RowHeaders names the columns of Cells, in order.
var RowHeaders = []string{
	"Invoice ID", "Invoice No", "Party", "PO No", "Base", "GST %",
	"Total (incl. GST)", "Paid", "Pending", "Status", "Payments", "Last Payment",
}

// Cells renders the row for tabular exports, amounts fixed to two places.
func (r *InvoiceRow) Cells() []string {
	return []string{
		strconv.FormatInt(r.InvoiceID, 10),
		r.InvoiceNumber,
		r.PartyName,
		r.PONumber,
		ledger.Fixed(r.Base),
		r.GSTRate.String(),
		ledger.Fixed(r.TotalWithGST),
		ledger.Fixed(r.Paid),
		ledger.Fixed(r.Pending),
		string(r.Status),
		strconv.Itoa(r.Payments),
		r.LastPaymentDate,
	}
}
