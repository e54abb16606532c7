package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// CompletedRow represents one completed invoice line written to the sheet
type CompletedRow struct {
	InvoiceID     string
	Line          int
	Product       string
	Quantity      float64
	UnitPrice     string
	UnitPriceInc  string
	VatRate       string
	VatAmount     string
	VatRateSource string
	StrategyUsed  string
	Incomplete    bool
	Diagnostics   string
	ProcessedAt   string
}

var completedHeaders = []interface{}{
	"Invoice", "Line", "Product", "Quantity", "Unit price", "Unit price inc",
	"VAT rate", "VAT amount", "VAT rate source", "Strategy", "Incomplete",
	"Diagnostics", "Processed at",
}

// NewSheetsService creates a new Google Sheets service
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	// Extract spreadsheet ID from URL
	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
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

// WriteCompletedLines appends the lines of the completed invoices to the sheet
func (s *Service) WriteCompletedLines(ctx context.Context, invoices []*models.Invoice, sheetName string) error {
	const op = "WriteCompletedLines"

	rows := CompletedRows(invoices, time.Now())

	s.log.Info().
		Str("sheet", sheetName).
		Int("invoices", len(invoices)).
		Int("rows", len(rows)).
		Msg("Writing completed lines to Google Sheet")

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, rowToValues(row))
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		sheetName+"!"+headerRange(),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote completed lines to Google Sheet")

	return nil
}

// CompletedRows flattens completed invoices into one row per line
func CompletedRows(invoices []*models.Invoice, processedAt time.Time) []CompletedRow {
	stamp := processedAt.Format("2006-01-02 15:04:05")

	var rows []CompletedRow
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		diagnostics := make([]string, 0, len(inv.Meta.Diagnostics))
		for _, d := range inv.Meta.Diagnostics {
			diagnostics = append(diagnostics, string(d.Kind))
		}

		for i, line := range inv.Lines {
			rows = append(rows, CompletedRow{
				InvoiceID:     inv.ID,
				Line:          i + 1,
				Product:       line.Product,
				Quantity:      line.Qty(),
				UnitPrice:     formatCell(line.UnitPrice),
				UnitPriceInc:  formatCell(line.UnitPriceInc),
				VatRate:       formatCell(line.VatRate),
				VatAmount:     formatCell(line.VatAmount),
				VatRateSource: string(line.VatRateSource),
				StrategyUsed:  line.Meta.StrategyUsed,
				Incomplete:    inv.Meta.Incomplete,
				Diagnostics:   strings.Join(diagnostics, ", "),
				ProcessedAt:   stamp,
			})
		}
	}
	return rows
}

func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// rowToValues converts a CompletedRow to interface{} slice for Google Sheets
func rowToValues(row CompletedRow) []interface{} {
	return []interface{}{
		row.InvoiceID,     // A
		row.Line,          // B
		row.Product,       // C
		row.Quantity,      // D
		row.UnitPrice,     // E
		row.UnitPriceInc,  // F
		row.VatRate,       // G
		row.VatAmount,     // H
		row.VatRateSource, // I
		row.StrategyUsed,  // J
		row.Incomplete,    // K
		row.Diagnostics,   // L
		row.ProcessedAt,   // M
	}
}

// headerRange returns the columns covered by the completed lines, e.g. "A:M"
func headerRange() string {
	return fmt.Sprintf("A:%c", 'A'+len(completedHeaders)-1)
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
				{AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: sheetName},
				}},
			},
		}

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, batchUpdateReq).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	firstRow := fmt.Sprintf("%s!A1:%c1", sheetName, 'A'+len(completedHeaders)-1)
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, firstRow).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}

	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

		_, err = s.sheetsService.Spreadsheets.Values.Update(
			s.spreadsheetID,
			firstRow,
			&sheets.ValueRange{Values: [][]interface{}{completedHeaders}},
		).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to add headers: %w", op, err)
		}

		if err := s.formatHeaders(ctx, sheetID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	return nil
}

// formatHeaders makes the header row bold and resizes the columns
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	columns := int64(len(completedHeaders))
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
						TextFormat: &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{
							Red:   0.9,
							Green: 0.9,
							Blue:  0.9,
						},
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

// ReadRange reads values from a specified range in the spreadsheet
func (s *Service) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	const op = "ReadRange"

	s.log.Debug().
		Str("range", rangeSpec).
		Msg("Reading range from spreadsheet")

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read range %s: %w", op, rangeSpec, err)
	}

	s.log.Debug().
		Int("rows", len(resp.Values)).
		Str("range", rangeSpec).
		Msg("Successfully read range from spreadsheet")

	return resp.Values, nil
}
