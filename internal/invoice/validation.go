package invoice

import (
	"fmt"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// ValidateInvoice checks if the invoice carries enough information to be completed
func (c *Completor) ValidateInvoice(invoice *models.Invoice) (bool, []string) {
	if invoice == nil {
		return false, []string{"invoice is nil"}
	}

	var issues []string

	known := 0
	for _, total := range []*float64{invoice.Amount, invoice.AmountInc, invoice.VatAmount} {
		if total != nil {
			known++
		}
	}
	if known < 2 {
		issues = append(issues, "at least two of amount, amount_inc and vat_amount are required")
	}

	// Check if Amount + VAT ≈ AmountInc
	if known == 3 {
		calculated := *invoice.Amount + *invoice.VatAmount
		if !floatsAreEqual(calculated, *invoice.AmountInc, priceEpsilon) {
			issues = append(issues, fmt.Sprintf("amount (%.2f) + vat_amount (%.2f) = %.2f, but amount_inc = %.2f",
				*invoice.Amount, *invoice.VatAmount, calculated, *invoice.AmountInc))
		}
	}

	if len(invoice.Lines) == 0 {
		issues = append(issues, "invoice has no lines")
	}
	for i, line := range invoice.Lines {
		if line.UnitPrice == nil && line.UnitPriceInc == nil {
			issues = append(issues, fmt.Sprintf("line %d (%q): neither unit_price nor unit_price_inc is known", i, line.Product))
		}
		if line.VatRateSource == models.VatRateSourceCalculated &&
			line.VatRate == nil && (line.VatRateMin == nil || line.VatRateMax == nil) {
			issues = append(issues, fmt.Sprintf("line %d (%q): calculated vat rate without rate or range", i, line.Product))
		}
	}

	if len(issues) > 0 {
		c.log.Warn().
			Str("invoice_id", invoice.ID).
			Strs("issues", issues).
			Msg("Invoice validation failed")
	}

	return len(issues) == 0, issues
}

// invoiceTotals returns the VAT and the amount ex VAT of the invoice, deriving
// one from the other two totals when needed.
func invoiceTotals(invoice *models.Invoice) (vatAmount, amount float64, ok bool) {
	switch {
	case invoice.VatAmount != nil:
		vatAmount = *invoice.VatAmount
	case invoice.AmountInc != nil && invoice.Amount != nil:
		vatAmount = *invoice.AmountInc - *invoice.Amount
	default:
		return 0, 0, false
	}

	switch {
	case invoice.Amount != nil:
		amount = *invoice.Amount
	case invoice.AmountInc != nil:
		amount = *invoice.AmountInc - vatAmount
	default:
		return 0, 0, false
	}

	return vatAmount, amount, true
}

// completeInvoiceTotals fills in the missing total when the other two are known.
func (cc *completion) completeInvoiceTotals() {
	invoice := cc.invoice

	// If we have amount and VAT, calculate amount inc
	if invoice.Amount != nil && invoice.VatAmount != nil && invoice.AmountInc == nil {
		invoice.AmountInc = models.Float(*invoice.Amount + *invoice.VatAmount)
		cc.log.Debug().Float64("calculated_amount_inc", *invoice.AmountInc).Msg("Calculated missing amount inc")
	}

	// If we have amount inc and VAT, calculate amount
	if invoice.AmountInc != nil && invoice.VatAmount != nil && invoice.Amount == nil {
		invoice.Amount = models.Float(*invoice.AmountInc - *invoice.VatAmount)
		cc.log.Debug().Float64("calculated_amount", *invoice.Amount).Msg("Calculated missing amount")
	}

	// If we have amount inc and amount, calculate VAT
	if invoice.AmountInc != nil && invoice.Amount != nil && invoice.VatAmount == nil {
		invoice.VatAmount = models.Float(*invoice.AmountInc - *invoice.Amount)
		cc.log.Debug().Float64("calculated_vat", *invoice.VatAmount).Msg("Calculated missing vat amount")
	}
}
