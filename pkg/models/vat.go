package models

// VatRateSource tells where the rate of a line came from and how far it can be trusted.
type VatRateSource string

const (
	// VatRateSourceExact is a rate stored as such by the shop.
	VatRateSourceExact VatRateSource = "exact"
	// VatRateSourceExact0 is a line without any VAT.
	VatRateSourceExact0 VatRateSource = "exact-0"
	// VatRateSourceCalculated is a rate computed from rounded amounts, bounded by
	// VatRateMin and VatRateMax.
	VatRateSourceCalculated VatRateSource = "calculated"
	// VatRateSourceCalculatedCorrected is a calculated rate replaced by the unique
	// admissible rate inside its range.
	VatRateSourceCalculatedCorrected VatRateSource = "calculated-corrected"
	// VatRateSourceCompletorFilled is a line whose rate is left for the completor.
	VatRateSourceCompletorFilled VatRateSource = "completor-filled"
	// VatRateSourceCompletorCorrected is a rate filled in by the completor.
	VatRateSourceCompletorCorrected VatRateSource = "completor-corrected"
	// VatRateSourceStrategy is a line to be resolved by a strategy.
	VatRateSourceStrategy VatRateSource = "strategy"
	// VatRateSourceStrategyCompleted is a line resolved by a strategy.
	VatRateSourceStrategyCompleted VatRateSource = "strategy-completed"
)

// IsCorrectVatRateSource reports whether a rate with this source can be used as is.
func IsCorrectVatRateSource(source VatRateSource) bool {
	switch source {
	case VatRateSourceExact,
		VatRateSourceExact0,
		VatRateSourceCalculatedCorrected,
		VatRateSourceCompletorCorrected,
		VatRateSourceStrategyCompleted:
		return true
	}
	return false
}

// DiagnosticKind classifies a completion note.
type DiagnosticKind string

const (
	DiagnosticUnderSpecifiedLine DiagnosticKind = "under-specified-line"
	DiagnosticNoRateMatch        DiagnosticKind = "no-rate-match"
	DiagnosticAmbiguousRateMatch DiagnosticKind = "ambiguous-rate-match"
	DiagnosticNoRateToCopy       DiagnosticKind = "no-rate-to-copy"
	DiagnosticMissingTotals      DiagnosticKind = "missing-totals"
	DiagnosticStrategyExhausted  DiagnosticKind = "strategy-exhausted"
	DiagnosticDiscountCorrected  DiagnosticKind = "discount-corrected"
)

// Diagnostic is a non-fatal note produced while completing an invoice.
type Diagnostic struct {
	Kind       DiagnosticKind     `json:"kind"`
	Line       int                `json:"line"` // Index in Invoice.Lines, -1 for the invoice
	Message    string             `json:"message"`
	Candidates []VatRateCandidate `json:"candidates,omitempty"`
}

// StrategyInput records what the strategy phase started from.
type StrategyInput struct {
	VatRates     []VatRateCandidate  `json:"vat_rates"`
	VatToDivide  float64             `json:"vat_to_divide"`
	VatBreakdown []VatBreakdownEntry `json:"vat_breakdown"`
}

type InvoiceMeta struct {
	StrategyInput       *StrategyInput `json:"strategy_input,omitempty"`
	StrategiesUsed      []string       `json:"strategies_used,omitempty"`      // Descriptions of the successful strategies
	PreconditionsFailed []string       `json:"preconditions_failed,omitempty"` // Strategies that did not apply
	Incomplete          bool           `json:"incomplete,omitempty"`           // Needs manual handling
	Diagnostics         []Diagnostic   `json:"diagnostics,omitempty"`
}

type LineMeta struct {
	CalculatedFields []string `json:"calculated_fields,omitempty"` // Fields filled in by the completor
	VatRateMatches   string   `json:"vat_rate_matches,omitempty"`  // "none" or "rate(type),..." when a range is ambiguous
	LinePrice        *float64 `json:"line_price,omitempty"`        // UnitPrice × quantity of split lines
	LinePriceInc     *float64 `json:"line_price_inc,omitempty"`    // UnitPriceInc × quantity of split lines
	StrategyUsed     string   `json:"strategy_used,omitempty"`
}

// AddDiagnostic appends a diagnostic to the invoice.
func (inv *Invoice) AddDiagnostic(kind DiagnosticKind, line int, message string) {
	inv.Meta.Diagnostics = append(inv.Meta.Diagnostics, Diagnostic{Kind: kind, Line: line, Message: message})
}

// HasCalculatedField reports whether field was filled in by the completor.
func (m *LineMeta) HasCalculatedField(field string) bool {
	for _, f := range m.CalculatedFields {
		if f == field {
			return true
		}
	}
	return false
}
