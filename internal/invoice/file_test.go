package invoice_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoice = `{
  "id": "1001",
  "country_code": "NL",
  "amount": 165,
  "vat_amount": 26.40,
  "lines": [
    {"product": "Book", "quantity": 1, "unit_price": 100, "vat_rate": 21},
    {"product": "Gift", "quantity": 1, "unit_price": 0, "vat_rate": 0},
    {"product": "Shipping", "unit_price_inc": 17.40, "strategy_split": true},
    {"product": "Bag", "unit_price_inc": 2.42, "vat_amount": 0.42}
  ]
}`

func TestDecodeInvoice(t *testing.T) {
	inv, err := invoice.DecodeInvoice(strings.NewReader(sampleInvoice))
	require.NoError(t, err)

	assert.Equal(t, "1001", inv.ID)
	require.Len(t, inv.Lines, 4)
	assert.Equal(t, models.VatRateSourceExact, inv.Lines[0].VatRateSource)
	assert.Equal(t, models.VatRateSourceExact0, inv.Lines[1].VatRateSource)
	assert.Equal(t, models.VatRateSourceStrategy, inv.Lines[2].VatRateSource)
	assert.Equal(t, models.VatRateSourceCompletorFilled, inv.Lines[3].VatRateSource)
	assert.Nil(t, inv.Lines[2].UnitPrice)
	require.NotNil(t, inv.Lines[1].UnitPrice)
	assert.Zero(t, *inv.Lines[1].UnitPrice)
}

func TestDecodeInvoiceErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `{"id": `, invoice.ErrInvalidInvoiceFile},
		{"unknown field", `{"id": "1", "lines": [], "foo": 1}`, invoice.ErrInvalidInvoiceFile},
		{"no lines", `{"id": "1", "lines": []}`, invoice.ErrEmptyInvoice},
		{"unknown source", `{"id": "1", "lines": [{"product": "a", "vat_rate_source": "guess"}]}`, invoice.ErrInvalidLine},
		{"negative quantity", `{"id": "1", "lines": [{"product": "a", "quantity": -1}]}`, invoice.ErrInvalidLine},
		{"inverted range", `{"id": "1", "lines": [{"product": "a", "vat_rate_min": 22, "vat_rate_max": 20, "vat_rate_source": "calculated"}]}`, invoice.ErrInvalidLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoice.DecodeInvoice(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeInvoiceCreditNoteAllowsNegativeQuantity(t *testing.T) {
	doc := `{"id": "1", "type": "credit-note", "lines": [{"product": "a", "quantity": -1, "unit_price": 10, "vat_rate": 21}]}`
	inv, err := invoice.DecodeInvoice(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, -1.0, inv.Lines[0].Quantity)
}

func TestReadInvoiceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1001.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleInvoice), 0o600))

	inv, err := invoice.ReadInvoiceFile(path)
	require.NoError(t, err)
	assert.Equal(t, "NL", inv.CountryCode)

	_, err = invoice.ReadInvoiceFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o600))
	_, err = invoice.ReadInvoiceFile(broken)
	var completionErr *invoice.CompletionError
	require.True(t, errors.As(err, &completionErr))
	assert.Equal(t, "DecodeInvoice", completionErr.Op)
	assert.ErrorIs(t, err, invoice.ErrInvalidInvoiceFile)
}

func TestDecodedInvoiceCompletes(t *testing.T) {
	doc := `{
  "id": "1002",
  "amount": 165,
  "vat_amount": 26.40,
  "lines": [
    {"product": "Book", "quantity": 1, "unit_price": 100, "vat_rate": 21},
    {"product": "Food", "quantity": 1, "unit_price": 50, "vat_rate": 6},
    {"product": "Shipping", "unit_price_inc": 17.40, "strategy_split": true}
  ]
}`
	inv, err := invoice.DecodeInvoice(strings.NewReader(doc))
	require.NoError(t, err)

	newCompletor().Complete(inv, rates6_21)

	assert.False(t, inv.Meta.Incomplete)
	assert.Equal(t, []string{"SplitLine(21, 5.00, 10.00)"}, inv.Meta.StrategiesUsed)
	require.Len(t, inv.Lines, 4)
	assert.Equal(t, models.VatRateSourceStrategyCompleted, inv.Lines[2].VatRateSource)
}
