package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"siteledger/internal/ledger"
	"siteledger/internal/reconciliation"
)

// numeric columns of reconciliation.RowHeaders, written as numbers
var xlsxAmountColumns = map[int]bool{4: true, 6: true, 7: true, 8: true}

// SheetName is the worksheet a summary is written to.
func SheetName(milestoneID int64) string {
	return "Milestone " + strconv.FormatInt(milestoneID, 10)
}

// NewWorkbook builds a workbook with one sheet holding the summary rows and
// a totals line.
func NewWorkbook(s *reconciliation.Summary) (*excelize.File, error) {
	const op = "NewWorkbook"

	f := excelize.NewFile()
	sheet := SheetName(s.MilestoneID)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: header style: %w", op, err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return nil, fmt.Errorf("%s: money style: %w", op, err)
	}

	for i, h := range reconciliation.RowHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(reconciliation.RowHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, r := range s.Rows {
		row := i + 2
		for col, v := range r.Cells() {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			var value interface{} = v
			if xlsxAmountColumns[col] {
				value, _ = ledger.AmountOrZero(v).Float64()
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", op, row, err)
			}
			if xlsxAmountColumns[col] {
				if err := f.SetCellStyle(sheet, cell, cell, moneyStyle); err != nil {
					return nil, fmt.Errorf("%s: %w", op, err)
				}
			}
		}
	}

	totalRow := len(s.Rows) + 2
	totals := map[string]interface{}{
		fmt.Sprintf("B%d", totalRow): "Total",
		fmt.Sprintf("G%d", totalRow): s.Totals.Invoiced.InexactFloat64(),
		fmt.Sprintf("H%d", totalRow): s.Totals.Paid.InexactFloat64(),
		fmt.Sprintf("I%d", totalRow): s.Totals.Pending.InexactFloat64(),
	}
	for cell, v := range totals {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return nil, fmt.Errorf("%s: totals: %w", op, err)
		}
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("G%d", totalRow), fmt.Sprintf("I%d", totalRow), moneyStyle); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_ = f.SetColWidth(sheet, "B", "D", 20)
	_ = f.SetColWidth(sheet, "E", "I", 16)
	return f, nil
}

// WriteXLSX saves the summary as an XLSX workbook at path.
func WriteXLSX(path string, s *reconciliation.Summary) error {
	f, err := NewWorkbook(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("WriteXLSX: %s: %w", path, err)
	}
	return nil
}
