package invoice

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// ReadInvoiceFile reads a JSON invoice document from disk.
func ReadInvoiceFile(path string) (*models.Invoice, error) {
	const op = "ReadInvoiceFile"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open %s: %w", op, path, err)
	}
	defer f.Close()

	inv, err := DecodeInvoice(f)
	if err != nil {
		return nil, WrapCompletionError(op, err, path)
	}
	return inv, nil
}

// DecodeInvoice decodes a JSON invoice document and checks the values the
// completor relies on.
func DecodeInvoice(r io.Reader) (*models.Invoice, error) {
	const op = "DecodeInvoice"

	var inv models.Invoice
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&inv); err != nil {
		return nil, NewCompletionError(op, ErrInvalidInvoiceFile, err.Error())
	}

	if err := Normalize(&inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

// Normalize fills in the default vat rate source of lines without one and
// rejects values the completor cannot work with. Every invoice source should
// pass its invoices through it before completion.
func Normalize(inv *models.Invoice) error {
	const op = "Normalize"

	if len(inv.Lines) == 0 {
		return NewCompletionError(op, ErrEmptyInvoice, inv.ID)
	}

	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.VatRateSource == "" {
			line.VatRateSource = defaultVatRateSource(line)
		}
		if !isKnownVatRateSource(line.VatRateSource) {
			return NewValidationError(fmt.Sprintf("lines[%d].vat_rate_source", i), line.VatRateSource, "unknown vat rate source")
		}
		if line.Quantity < 0 && inv.Type != models.InvoiceTypeCreditNote {
			return NewValidationError(fmt.Sprintf("lines[%d].quantity", i), line.Quantity, "negative quantity on an order")
		}
		if line.VatRateMin != nil && line.VatRateMax != nil && *line.VatRateMin > *line.VatRateMax {
			return NewValidationError(fmt.Sprintf("lines[%d].vat_rate_min", i), *line.VatRateMin, "larger than vat_rate_max")
		}
	}
	return nil
}

// defaultVatRateSource reads a line without a source: a given rate is exact,
// a split line is left to the strategies and anything else to the completor.
func defaultVatRateSource(line *models.Line) models.VatRateSource {
	switch {
	case line.VatRate != nil && isZero(*line.VatRate, rateEpsilon):
		return models.VatRateSourceExact0
	case line.VatRate != nil:
		return models.VatRateSourceExact
	case line.StrategySplit:
		return models.VatRateSourceStrategy
	default:
		return models.VatRateSourceCompletorFilled
	}
}

func isKnownVatRateSource(source models.VatRateSource) bool {
	switch source {
	case models.VatRateSourceExact,
		models.VatRateSourceExact0,
		models.VatRateSourceCalculated,
		models.VatRateSourceCalculatedCorrected,
		models.VatRateSourceCompletorFilled,
		models.VatRateSourceCompletorCorrected,
		models.VatRateSourceStrategy,
		models.VatRateSourceStrategyCompleted:
		return true
	}
	return false
}
