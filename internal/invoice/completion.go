package invoice

import (
	"fmt"

	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/rs/zerolog"
)

// Names of the fields the completor may fill in, as recorded in LineMeta.CalculatedFields.
const (
	fieldUnitPrice             = "unit_price"
	fieldUnitPriceInc          = "unit_price_inc"
	fieldVatAmount             = "vat_amount"
	fieldVatRate               = "vat_rate"
	fieldLineDiscountAmountInc = "line_discount_amount_inc"
)

// Completor implements VatCompletor. It holds no state between invoices and is
// safe for concurrent use.
type Completor struct {
	config CompletionConfig
	log    zerolog.Logger
}

// completion carries everything one run over one invoice needs. Every pass
// receives it explicitly.
type completion struct {
	invoice *models.Invoice
	rates   []models.VatRateCandidate
	log     zerolog.Logger
}

// NewCompletor creates a completor with the given configuration
func NewCompletor(config CompletionConfig) *Completor {
	if config.MaxPermutations <= 0 {
		config.MaxPermutations = DefaultCompletionConfig().MaxPermutations
	}
	return &Completor{
		config: config,
		log:    logger.WithComponent("vat-completor"),
	}
}

// Complete runs the completion pipeline over the invoice.
func (c *Completor) Complete(invoice *models.Invoice, rates []models.VatRateCandidate) *models.Invoice {
	if invoice == nil {
		return nil
	}

	cc := &completion{
		invoice: invoice,
		rates:   rates,
		log:     c.log.With().Str("invoice_id", invoice.ID).Logger(),
	}

	cc.log.Debug().
		Int("lines", len(invoice.Lines)).
		Int("rates", len(rates)).
		Msg("Starting VAT completion")

	cc.completeInvoiceTotals()
	cc.correctCalculatedVatRates()
	cc.completeLineRequiredData()
	cc.addVatRateToZeroPriceLines()
	cc.completeLineMetaData()
	c.completeStrategyLines(cc)
	cc.checkCompleteness()

	cc.log.Info().
		Int("lines", len(invoice.Lines)).
		Strs("strategies", invoice.Meta.StrategiesUsed).
		Int("diagnostics", len(invoice.Meta.Diagnostics)).
		Bool("incomplete", invoice.Meta.Incomplete).
		Msg("VAT completion finished")

	return invoice
}

// checkCompleteness reports lines that are still missing a price or a rate.
func (cc *completion) checkCompleteness() {
	for i := range cc.invoice.Lines {
		line := &cc.invoice.Lines[i]
		if line.UnitPrice == nil {
			cc.invoice.AddDiagnostic(models.DiagnosticUnderSpecifiedLine, i,
				fmt.Sprintf("%q: unit price cannot be derived from the known fields", line.Product))
			cc.invoice.Meta.Incomplete = true
			continue
		}
		if line.VatRate == nil {
			if line.VatRateSource == models.VatRateSourceCompletorFilled {
				cc.invoice.AddDiagnostic(models.DiagnosticUnderSpecifiedLine, i,
					fmt.Sprintf("%q: no vat rate and a non zero price", line.Product))
			}
			cc.invoice.Meta.Incomplete = true
		}
	}

	if cc.invoice.Meta.Incomplete {
		cc.log.Warn().
			Int("diagnostics", len(cc.invoice.Meta.Diagnostics)).
			Msg("Invoice needs manual handling")
	}
}
