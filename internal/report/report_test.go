package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"siteledger/internal/reconciliation"
	"siteledger/pkg/models"
)

func sampleSummary() *reconciliation.Summary {
	s := reconciliation.Build(42, []models.Invoice{
		{
			ID: 1, InvoiceNumber: "INV-1", PartyName: "Acme Scaffolding",
			TotalAmount: "1000.00", GSTPercentage: "18", GSTAmount: "1180.00",
			PaymentHistory: []models.PaymentRecord{
				{AmountPaid: "400.00", PaymentDate: "2026-09-01"},
				{AmountPaid: "350.50", PaymentDate: "2026-09-15"},
			},
		},
		{
			ID: 2, PartyName: "Beta Cranes",
			TotalAmount: "500", GSTPercentage: "0", GSTAmount: "500.00",
			PaymentHistory: []models.PaymentRecord{{AmountPaid: "500", PaymentDate: "2026-08-30"}},
		},
	})
	s.Source = reconciliation.SourceSnapshot
	s.FetchedAt = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return s
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":      FormatTable,
		"table": FormatTable,
		"JSON":  FormatJSON,
		"yml":   FormatYAML,
		"yaml":  FormatYAML,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSummary(), FormatJSON))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, int64(42), doc.MilestoneID)
	assert.Equal(t, "snapshot", doc.Source)
	assert.Equal(t, "2026-10-01T09:00:00Z", doc.FetchedAt)
	assert.Equal(t, "1680.00", doc.Totals.Invoiced)
	assert.Equal(t, "1250.50", doc.Totals.Paid)
	assert.Equal(t, "429.50", doc.Totals.Pending)
	assert.Equal(t, map[string]int{"Partial": 1, "Paid": 1}, doc.Totals.ByStatus)

	require.Len(t, doc.Invoices, 2)
	assert.Equal(t, "429.50", doc.Invoices[0].Pending)
	assert.Equal(t, "Partial", doc.Invoices[0].Status)
	assert.Equal(t, "2026-09-15", doc.Invoices[0].LastPaymentDate)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSummary(), FormatYAML))

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, int64(42), doc.MilestoneID)
	assert.Equal(t, "429.50", doc.Totals.Pending)
	assert.Contains(t, buf.String(), "pending: \"429.50\"")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sampleSummary())

	assert.Contains(t, out, "Milestone 42")
	assert.Contains(t, out, "cached")
	assert.Contains(t, out, "INV-1")
	assert.Contains(t, out, "#2")
	assert.Contains(t, out, "₹429.50")
	assert.Contains(t, out, "Partial")
	assert.Contains(t, out, "2 invoices")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Contains(t, lines[len(lines)-2], "₹1680.00")
	assert.Contains(t, lines[len(lines)-1], "1 of 2 invoices outstanding")
	assert.NotContains(t, out, "overpaid")
}

func TestRenderTable_FlagsOverpaid(t *testing.T) {
	s := reconciliation.Build(9, []models.Invoice{{
		ID: 4, InvoiceNumber: "INV-4", GSTAmount: "100.00",
		PaymentHistory: []models.PaymentRecord{{AmountPaid: "120", PaymentDate: "2026-10-02"}},
	}})

	out := RenderTable(s)
	assert.Contains(t, out, "Paid (overpaid)")
	assert.Contains(t, out, "₹-20.00")
	assert.Contains(t, out, "All invoices settled")
}

func TestRenderTable_Empty(t *testing.T) {
	out := RenderTable(reconciliation.Build(7, nil))
	assert.Contains(t, out, "No invoices recorded")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "milestone.xlsx")
	require.NoError(t, WriteXLSX(path, sampleSummary()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := SheetName(42)
	assert.Equal(t, []string{sheet}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	get := func(cell string) string {
		v, err := f.GetCellValue(sheet, cell, raw)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Invoice ID", get("A1"))
	assert.Equal(t, "Pending", get("I1"))
	assert.Equal(t, "INV-1", get("B2"))
	assert.Equal(t, "1180", get("G2"))
	assert.Equal(t, "429.5", get("I2"))
	assert.Equal(t, "Partial", get("J2"))
	assert.Equal(t, "Paid", get("J3"))
	assert.Equal(t, "Total", get("B4"))
	assert.Equal(t, "1680", get("G4"))
	assert.Equal(t, "429.5", get("I4"))
}
