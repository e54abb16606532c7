package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRanges map[string][][]interface{}

func (f fakeRanges) ReadRange(_ context.Context, rangeSpec string) ([][]interface{}, error) {
	values, ok := f[rangeSpec]
	if !ok {
		return nil, errors.New("no such range")
	}
	return values, nil
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = extractSpreadsheetID("https://example.com/sheet")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"", nil},
		{"12.5", models.Float(12.5)},
		{"1.234,56", models.Float(1234.56)},
		{"-17,40", models.Float(-17.40)},
		{".5", models.Float(0.5)},
		{"€ 10", models.Float(10)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 0.000001)
		})
	}

	_, err := parseAmount("twelve")
	assert.Error(t, err)
}

func TestReadInvoices(t *testing.T) {
	source := fakeRanges{
		"Invoices!A:H": {
			{"ID", "Number", "Type", "Country", "Currency", "Amount", "Amount inc", "VAT amount"},
			{"1001", "INV-1", "order", "nl", "eur", "165", "", "26,40"},
			{"1002", "INV-2", "order", "NL", "EUR", "abc", "", ""},
			{"1003", "INV-3", "order", "NL", "EUR", "10", "12.10", ""},
		},
		"Lines!A:I": {
			{"Invoice", "Product", "Quantity", "Unit price", "Unit price inc", "Cost price", "VAT rate", "VAT amount", "Split"},
			{"1001", "Book", "1", "100", "", "", "21%", ""},
			{"1001", "Food", "1", "50", "", "", "6", ""},
			{"1001", "Shipping", "1", "", "17,40", "", "", "", "TRUE"},
			{"9999", "Orphan", "1", "1", "", "", "21", ""},
		},
	}

	invoices, err := NewDataReader(source).ReadInvoices(context.Background())
	require.NoError(t, err)

	// 1002 has a bad amount, 1003 has no lines.
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, "1001", inv.ID)
	assert.Equal(t, "NL", inv.CountryCode)
	assert.Equal(t, "EUR", inv.Currency)
	assert.InDelta(t, 26.40, *inv.VatAmount, 0.000001)
	assert.Nil(t, inv.AmountInc)

	require.Len(t, inv.Lines, 3)
	assert.Equal(t, 21.0, *inv.Lines[0].VatRate)
	assert.Equal(t, models.VatRateSourceExact, inv.Lines[0].VatRateSource)
	assert.True(t, inv.Lines[2].StrategySplit)
	assert.Equal(t, models.VatRateSourceStrategy, inv.Lines[2].VatRateSource)
}

func TestReadInvoicesEmptySheet(t *testing.T) {
	source := fakeRanges{"Invoices!A:H": {{"ID"}}, "Lines!A:I": nil}
	_, err := NewDataReader(source).ReadInvoices(context.Background())
	assert.Error(t, err)

	_, err = NewDataReader(fakeRanges{}).ReadInvoices(context.Background())
	assert.Error(t, err)
}

func TestCompletedRows(t *testing.T) {
	inv := &models.Invoice{
		ID: "1001",
		Lines: []models.Line{
			{Product: "Book", UnitPrice: models.Float(100), VatRate: models.Float(21), VatAmount: models.Float(21), VatRateSource: models.VatRateSourceExact},
			{Product: "Shipping 6% VAT", Quantity: 1, UnitPrice: models.Float(5), VatRate: models.Float(6), VatRateSource: models.VatRateSourceStrategyCompleted, Meta: models.LineMeta{StrategyUsed: "SplitLine"}},
		},
		Meta: models.InvoiceMeta{
			Incomplete:  true,
			Diagnostics: []models.Diagnostic{{Kind: models.DiagnosticNoRateMatch}, {Kind: models.DiagnosticStrategyExhausted}},
		},
	}

	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	rows := CompletedRows([]*models.Invoice{inv, nil}, at)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, 1.0, rows[0].Quantity)
	assert.Equal(t, "100.00", rows[0].UnitPrice)
	assert.Equal(t, "", rows[0].UnitPriceInc)
	assert.Equal(t, "no-rate-match, strategy-exhausted", rows[0].Diagnostics)
	assert.Equal(t, "2026-10-19 12:00:00", rows[0].ProcessedAt)
	assert.Equal(t, "SplitLine", rows[1].StrategyUsed)

	values := rowToValues(rows[1])
	assert.Len(t, values, len(completedHeaders))
	assert.Equal(t, "A:M", headerRange())
}
