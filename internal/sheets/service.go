package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"siteledger/internal/ledger"
	"siteledger/internal/logger"
	"siteledger/internal/reconciliation"
)

// Service appends reconciliation rows to a Google Sheet.
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
	now           func() time.Time
}

// NewSheetsService authenticates with the service-account key at
// credentialsFile and binds to the spreadsheet at sheetURL.
func NewSheetsService(ctx context.Context, sheetURL, credentialsFile string) (*Service, error) {
	const op = "NewSheetsService"

	if credentialsFile == "" {
		return nil, fmt.Errorf("%s: GOOGLE_APPLICATION_CREDENTIALS is not set", op)
	}
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	return NewServiceWithOptions(ctx, sheetURL, option.WithHTTPClient(config.Client(ctx)))
}

// NewServiceWithOptions builds the service from explicit client options.
func NewServiceWithOptions(ctx context.Context, sheetURL string, opts ...option.ClientOption) (*Service, error) {
	const op = "NewServiceWithOptions"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
		now:           time.Now,
	}, nil
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// Headers of the exported sheet.
func Headers() []interface{} {
	headers := []interface{}{"Milestone"}
	for _, h := range reconciliation.RowHeaders {
		headers = append(headers, h)
	}
	return append(headers, "Source", "Exported At")
}

// WriteSummary appends every row of the summary to sheetName, creating the
// sheet and its header row when missing.
func (s *Service) WriteSummary(ctx context.Context, summary *reconciliation.Summary, sheetName string) error {
	const op = "WriteSummary"

	s.log.Info().
		Str("sheet", sheetName).
		Int64("milestone_id", summary.MilestoneID).
		Int("rows", len(summary.Rows)).
		Msg("Writing reconciliation to Google Sheet")

	if len(summary.Rows) == 0 {
		s.log.Info().Msg("Nothing to export")
		return nil
	}

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	values := summaryValues(summary, s.now())
	valueRange := &sheets.ValueRange{Values: values}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", sheetName, columnLetter(len(Headers()))),
		valueRange,
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote reconciliation to Google Sheet")
	return nil
}

// summaryValues converts rows to sheet values. Amount columns are sent as
// numbers so the sheet can sum them.
func summaryValues(summary *reconciliation.Summary, exportedAt time.Time) [][]interface{} {
	stamp := exportedAt.Format("2006-01-02 15:04:05")
	values := make([][]interface{}, 0, len(summary.Rows))
	for _, r := range summary.Rows {
		row := []interface{}{summary.MilestoneID}
		for i, c := range r.Cells() {
			switch i {
			case 4, 6, 7, 8:
				f, _ := ledger.AmountOrZero(c).Float64()
				row = append(row, f)
			default:
				row = append(row, c)
			}
		}
		row = append(row, string(summary.Source), stamp)
		values = append(values, row)
	}
	return values
}

// columnLetter converts a 1-based column index to its A1 letter.
func columnLetter(n int) string {
	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return letters
}

// ensureSheetWithHeaders ensures the sheet exists and has proper headers
func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
			},
		}
		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headers := Headers()
	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, columnLetter(len(headers)))
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

		valueRange := &sheets.ValueRange{Values: [][]interface{}{headers}}
		_, err = s.sheetsService.Spreadsheets.Values.Update(
			s.spreadsheetID,
			headerRange,
			valueRange,
		).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to add headers: %w", op, err)
		}

		if err := s.formatHeaders(ctx, sheetID, int64(len(headers))); err != nil {
			s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	return nil
}

// formatHeaders makes the header row bold and resizes the columns
func (s *Service) formatHeaders(ctx context.Context, sheetID, columns int64) error {
	const op = "formatHeaders"

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	batchUpdateReq := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}
