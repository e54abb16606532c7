package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/gpasset/libAcumulus/internal/vatrates"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/invopop/gobl/num"
	"github.com/rs/zerolog"
)

// Tabs the reader expects in the spreadsheet.
const (
	InvoicesSheet  = "Invoices"
	LinesSheet     = "Lines"
	CompletedSheet = "Completed"
)

// RangeReader reads a range of cell values. *Service implements it.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
}

// DataReader reads invoices to complete from a spreadsheet
type DataReader struct {
	source RangeReader
	log    zerolog.Logger
}

// NewDataReader creates a new data reader for Google Sheets
func NewDataReader(source RangeReader) *DataReader {
	return &DataReader{
		source: source,
		log:    logger.WithComponent("sheets-reader"),
	}
}

// ReadInvoices reads the Invoices and Lines tabs and joins them on the invoice id.
func (dr *DataReader) ReadInvoices(ctx context.Context) ([]*models.Invoice, error) {
	const op = "ReadInvoices"

	// A=ID, B=Number, C=Type, D=Country, E=Currency, F=Amount, G=Amount inc, H=VAT amount
	invoiceRows, err := dr.source.ReadRange(ctx, InvoicesSheet+"!A:H")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, InvoicesSheet, err)
	}
	if len(invoiceRows) < 2 {
		return nil, fmt.Errorf("%s: %s sheet is empty", op, InvoicesSheet)
	}

	// A=Invoice, B=Product, C=Quantity, D=Unit price, E=Unit price inc,
	// F=Cost price, G=VAT rate, H=VAT amount, I=Split
	lineRows, err := dr.source.ReadRange(ctx, LinesSheet+"!A:I")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, LinesSheet, err)
	}

	return dr.parseInvoices(invoiceRows, lineRows), nil
}

func (dr *DataReader) parseInvoices(invoiceRows, lineRows [][]interface{}) []*models.Invoice {
	var invoices []*models.Invoice
	byID := make(map[string]*models.Invoice)

	for i, row := range invoiceRows[1:] {
		rowNum := i + 2
		inv, err := parseInvoiceRow(row)
		if err != nil {
			dr.log.Warn().Err(err).Int("row", rowNum).Str("sheet", InvoicesSheet).Msg("Failed to parse invoice, skipping")
			continue
		}
		if _, dup := byID[inv.ID]; dup {
			dr.log.Warn().Str("invoice_id", inv.ID).Int("row", rowNum).Msg("Duplicate invoice id, skipping")
			continue
		}
		byID[inv.ID] = inv
		invoices = append(invoices, inv)
	}

	if len(lineRows) > 0 {
		for i, row := range lineRows[1:] {
			rowNum := i + 2
			id := getString(row, 0)
			inv, ok := byID[id]
			if !ok {
				dr.log.Warn().Str("invoice_id", id).Int("row", rowNum).Msg("Line of unknown invoice, skipping")
				continue
			}
			line, err := parseLineRow(row)
			if err != nil {
				dr.log.Warn().Err(err).Int("row", rowNum).Str("sheet", LinesSheet).Msg("Failed to parse line, skipping")
				continue
			}
			inv.Lines = append(inv.Lines, line)
		}
	}

	valid := invoices[:0]
	for _, inv := range invoices {
		if err := invoice.Normalize(inv); err != nil {
			dr.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("Invalid invoice, skipping")
			continue
		}
		valid = append(valid, inv)
	}

	dr.log.Info().
		Int("invoice_rows", len(invoiceRows)-1).
		Int("invoices", len(valid)).
		Msg("Invoices read successfully")

	return valid
}

func parseInvoiceRow(row []interface{}) (*models.Invoice, error) {
	const op = "parseInvoiceRow"

	id := getString(row, 0)
	if id == "" {
		return nil, fmt.Errorf("%s: missing invoice id", op)
	}

	inv := &models.Invoice{
		ID:          id,
		Number:      getString(row, 1),
		Type:        strings.ToLower(getString(row, 2)),
		CountryCode: strings.ToUpper(getString(row, 3)),
		Currency:    strings.ToUpper(getString(row, 4)),
	}

	var err error
	if inv.Amount, err = parseAmount(getString(row, 5)); err != nil {
		return nil, fmt.Errorf("%s: amount: %w", op, err)
	}
	if inv.AmountInc, err = parseAmount(getString(row, 6)); err != nil {
		return nil, fmt.Errorf("%s: amount inc: %w", op, err)
	}
	if inv.VatAmount, err = parseAmount(getString(row, 7)); err != nil {
		return nil, fmt.Errorf("%s: vat amount: %w", op, err)
	}
	return inv, nil
}

func parseLineRow(row []interface{}) (models.Line, error) {
	const op = "parseLineRow"

	line := models.Line{Product: getString(row, 1)}

	quantity, err := parseAmount(getString(row, 2))
	if err != nil {
		return line, fmt.Errorf("%s: quantity: %w", op, err)
	}
	if quantity != nil {
		line.Quantity = *quantity
	}

	if line.UnitPrice, err = parseAmount(getString(row, 3)); err != nil {
		return line, fmt.Errorf("%s: unit price: %w", op, err)
	}
	if line.UnitPriceInc, err = parseAmount(getString(row, 4)); err != nil {
		return line, fmt.Errorf("%s: unit price inc: %w", op, err)
	}
	if line.CostPrice, err = parseAmount(getString(row, 5)); err != nil {
		return line, fmt.Errorf("%s: cost price: %w", op, err)
	}
	if rate := getString(row, 6); rate != "" {
		r, err := vatrates.ParsePercentage(rate)
		if err != nil {
			return line, fmt.Errorf("%s: vat rate: %w", op, err)
		}
		line.VatRate = models.Float(r)
	}
	if line.VatAmount, err = parseAmount(getString(row, 7)); err != nil {
		return line, fmt.Errorf("%s: vat amount: %w", op, err)
	}
	if split := getString(row, 8); split != "" {
		if line.StrategySplit, err = strconv.ParseBool(strings.ToLower(split)); err != nil {
			return line, fmt.Errorf("%s: split: %w", op, err)
		}
	}

	if line.UnitPrice == nil && line.UnitPriceInc == nil {
		return line, fmt.Errorf("%s: line %q has no price", op, line.Product)
	}
	return line, nil
}

// parseAmount parses a decimal cell. Empty cells are absent values. Both
// "1234.56" and "1.234,56" are accepted.
func parseAmount(s string) (*float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return nil, nil
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.TrimPrefix(cleaned, "€")
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	} else if strings.HasPrefix(cleaned, "-.") {
		cleaned = "-0" + cleaned[1:]
	}

	amount, err := num.AmountFromString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("unable to parse amount %q: %w", s, err)
	}
	f, err := strconv.ParseFloat(amount.String(), 64)
	if err != nil {
		return nil, fmt.Errorf("unable to parse amount %q: %w", s, err)
	}
	return &f, nil
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
