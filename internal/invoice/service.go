// Package invoice completes and reconciles the VAT information of invoice lines.
//
// Shops deliver invoices whose lines carry partial, rounded or absent VAT
// information, while the invoice totals are known precisely. The Completor fills
// in, corrects and reconciles the rate and amount of every line so that line VAT
// adds up to the invoice VAT.
//
// Completion Pipeline:
//   - Range correction: calculated rates are replaced by the unique admissible
//     rate inside their [min, max] range
//   - Field completion: missing prices ex VAT are derived from the price inc VAT
//   - Zero price lines get the highest rate appearing on the invoice
//   - Meta data: prices inc VAT and VAT amounts of resolved lines
//   - Strategies: lines that could not be resolved locally are resolved
//     together against the invoice totals
//
// Strategies (tried in this order, partial solutions are kept):
//   - SplitKnownDiscountLine: a discount line split over the known discounts per rate
//   - SplitNonMatchingLine: lines split over two rates preserving their own VAT
//   - ApplySameVatRate: one rate for all remaining lines
//   - SplitLine: lines split over the two rates of the invoice
//   - TryAllVatRatePermutations: exhaustive search over the admissible rates
//
// The engine never guesses: an invoice that cannot be reconciled is returned
// with Meta.Incomplete set and diagnostics explaining what is missing.
package invoice

import (
	"github.com/gpasset/libAcumulus/pkg/models"
)

// VatCompletor defines the interface for VAT completion services.
type VatCompletor interface {
	// Complete fills in and reconciles the VAT information of all lines of the
	// invoice, given the admissible rates for its jurisdiction. The invoice is
	// modified in place and returned.
	Complete(invoice *models.Invoice, rates []models.VatRateCandidate) *models.Invoice

	// ValidateInvoice checks if the invoice carries enough information to be completed.
	ValidateInvoice(invoice *models.Invoice) (bool, []string)
}

// DiscountCorrection may correct a discount line that does not match the known
// line discounts. It changes split in place and reports whether the corrected
// line may be split over the known discounts.
type DiscountCorrection func(invoice *models.Invoice, split *models.Line, knownAmountInc, knownVatAmount float64) bool

// CompletionConfig configures the completor
type CompletionConfig struct {
	MaxPermutations    int                // Upper bound on rate combinations tried by the exhaustive search
	DiscountCorrection DiscountCorrection // Optional, nil disables discount corrections
}

// DefaultCompletionConfig returns a CompletionConfig with sensible defaults.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{
		MaxPermutations: 4096,
	}
}
