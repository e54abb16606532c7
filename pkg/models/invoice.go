package models

// Invoice types
const (
	InvoiceTypeOrder      = "order"
	InvoiceTypeCreditNote = "credit-note"
)

type Invoice struct {
	// Core identifiers
	ID          string `json:"id"`                     // Unique invoice identifier
	Number      string `json:"number,omitempty"`       // Human-readable invoice number
	Type        string `json:"type,omitempty"`         // "order" or "credit-note"
	CountryCode string `json:"country_code,omitempty"` // ISO 3166 code used to look up admissible rates
	Currency    string `json:"currency,omitempty"`     // Currency code (EUR, USD, etc.)

	// Totals as delivered by the shop. At least two of the three must be known.
	Amount    *float64 `json:"amount,omitempty"`     // Total excluding VAT
	AmountInc *float64 `json:"amount_inc,omitempty"` // Total including VAT
	VatAmount *float64 `json:"vat_amount,omitempty"` // Total VAT

	Lines []Line      `json:"lines"`
	Meta  InvoiceMeta `json:"meta"`
}

type Line struct {
	Product  string  `json:"product"`
	Quantity float64 `json:"quantity,omitempty"` // 0 is read as 1

	// Prices per unit. nil means unknown, a pointer to 0 means free.
	UnitPrice    *float64 `json:"unit_price,omitempty"`     // Excluding VAT
	UnitPriceInc *float64 `json:"unit_price_inc,omitempty"` // Including VAT
	CostPrice    *float64 `json:"cost_price,omitempty"`     // Purchase price for margin schemes

	// VAT per unit
	VatRate       *float64      `json:"vat_rate,omitempty"`   // Percentage, e.g. 21
	VatAmount     *float64      `json:"vat_amount,omitempty"` // VAT per unit
	VatRateSource VatRateSource `json:"vat_rate_source"`
	VatRateMin    *float64      `json:"vat_rate_min,omitempty"` // Lower bound for calculated rates
	VatRateMax    *float64      `json:"vat_rate_max,omitempty"` // Upper bound for calculated rates

	// StrategySplit marks a line whose amount may be divided over several rates
	// (shipping, fees, discounts that are spread over the invoice).
	StrategySplit bool `json:"strategy_split,omitempty"`

	// Set on discount lines whose amount is known per line of the invoice.
	LineDiscountAmountInc *float64 `json:"line_discount_amount_inc,omitempty"`
	LineDiscountVatAmount *float64 `json:"line_discount_vat_amount,omitempty"`

	Meta LineMeta `json:"meta"`
}

// Qty returns the quantity, reading a missing quantity as 1.
func (l *Line) Qty() float64 {
	if l.Quantity == 0 {
		return 1
	}
	return l.Quantity
}

// VatRateCandidate is an admissible rate for the invoice's jurisdiction.
type VatRateCandidate struct {
	Rate    float64 `json:"rate" yaml:"rate"`
	VatType int     `json:"vat_type" yaml:"vat_type"`
}

// VatBreakdownEntry aggregates the already resolved lines of one rate.
type VatBreakdownEntry struct {
	Rate      float64 `json:"rate"`       // Rounded to 3 decimals
	VatAmount float64 `json:"vat_amount"` // Sum of VAT over the lines
	Amount    float64 `json:"amount"`     // Sum of amounts ex VAT over the lines
	Count     int     `json:"count"`
}

// Float returns a pointer to f, for filling optional fields.
func Float(f float64) *float64 {
	return &f
}
