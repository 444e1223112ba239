package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"siteledger/internal/ledger"
	"siteledger/internal/reconciliation"
)

var (
	accent  = lipgloss.Color("#D97706")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	warning = lipgloss.Color("#F59E0B")
	danger  = lipgloss.Color("#EF4444")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	totalStyle  = lipgloss.NewStyle().Bold(true)

	statusStyles = map[ledger.Status]lipgloss.Style{
		ledger.StatusPaid:    lipgloss.NewStyle().Foreground(success),
		ledger.StatusPartial: lipgloss.NewStyle().Foreground(warning),
		ledger.StatusUnpaid:  lipgloss.NewStyle().Foreground(danger),
	}
)

// maxPartyWidth truncates long party names so rows stay on one line.
const maxPartyWidth = 28

// table columns, a subset of reconciliation.RowHeaders
var tableColumns = []struct {
	title string
	right bool
}{
	{"Invoice", false},
	{"Party", false},
	{"Total", true},
	{"Paid", true},
	{"Pending", true},
	{"Status", false},
	{"Payments", true},
	{"Last Payment", false},
}

// RenderTable renders a summary as an aligned terminal table followed by the
// milestone totals.
func RenderTable(s *reconciliation.Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Milestone %d", s.MilestoneID)))
	if s.Source == reconciliation.SourceSnapshot && !s.FetchedAt.IsZero() {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  (cached %s)", s.FetchedAt.Local().Format("2006-01-02 15:04"))))
	}
	b.WriteString("\n\n")

	if len(s.Rows) == 0 {
		b.WriteString(dimStyle.Render("No invoices recorded for this milestone."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, []string{
			invoiceLabel(r),
			truncate(r.PartyName, maxPartyWidth),
			ledger.FormatMoney(r.TotalWithGST),
			ledger.FormatMoney(r.Paid),
			ledger.FormatMoney(r.Pending),
			statusLabel(r),
			fmt.Sprintf("%d", r.Payments),
			r.LastPaymentDate,
		})
	}
	totals := []string{
		"Total",
		fmt.Sprintf("%d invoices", s.Totals.Invoices),
		ledger.FormatMoney(s.Totals.Invoiced),
		ledger.FormatMoney(s.Totals.Paid),
		ledger.FormatMoney(s.Totals.Pending),
		"", "", "",
	}

	widths := columnWidths(rows, totals)

	header := make([]string, len(tableColumns))
	for i, c := range tableColumns {
		header[i] = cell(headerStyle, c.title, widths[i], c.right)
	}
	b.WriteString(strings.Join(header, "  "))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", sum(widths)+2*(len(widths)-1))))
	b.WriteString("\n")

	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			style := lipgloss.NewStyle()
			if j == 5 {
				style = statusStyle(s.Rows[i])
			}
			cells[j] = cell(style, v, widths[j], tableColumns[j].right)
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render(strings.Repeat("─", sum(widths)+2*(len(widths)-1))))
	b.WriteString("\n")
	cells := make([]string, len(totals))
	for j, v := range totals {
		cells[j] = cell(totalStyle, v, widths[j], tableColumns[j].right)
	}
	b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	b.WriteString("\n")

	if open := len(s.Outstanding()); open > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d invoices outstanding", open, s.Totals.Invoices)))
	} else {
		b.WriteString(dimStyle.Render("All invoices settled"))
	}
	b.WriteString("\n")

	return b.String()
}

func statusLabel(r reconciliation.InvoiceRow) string {
	if r.Overpaid() {
		return string(r.Status) + " (overpaid)"
	}
	return string(r.Status)
}

func statusStyle(r reconciliation.InvoiceRow) lipgloss.Style {
	if r.Overpaid() {
		return lipgloss.NewStyle().Foreground(danger)
	}
	return statusStyles[r.Status]
}

func invoiceLabel(r reconciliation.InvoiceRow) string {
	if r.InvoiceNumber != "" {
		return r.InvoiceNumber
	}
	return fmt.Sprintf("#%d", r.InvoiceID)
}

func cell(style lipgloss.Style, value string, width int, right bool) string {
	align := lipgloss.Left
	if right {
		align = lipgloss.Right
	}
	return style.Width(width).Align(align).Render(value)
}

func columnWidths(rows [][]string, extra []string) []int {
	widths := make([]int, len(tableColumns))
	for i, c := range tableColumns {
		widths[i] = lipgloss.Width(c.title)
	}
	for _, row := range append(rows, extra) {
		for i, v := range row {
			if w := lipgloss.Width(v); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}
