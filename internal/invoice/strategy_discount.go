package invoice

import (
	"fmt"
	"strings"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// splitKnownDiscountLine splits a discount line over the rates of the lines
// the discount was given on, when those lines carry their share of it.
type splitKnownDiscountLine struct {
	correction DiscountCorrection

	splitIndex             int
	split                  models.Line
	corrected              []string // Values of the split line before a correction
	knownDiscountAmountInc float64
	knownDiscountVatAmount float64
	discountsPerRate       []rateAmount
}

type rateAmount struct {
	rate   float64
	amount float64
}

func (d *splitKnownDiscountLine) Name() string {
	return "SplitKnownDiscountLine"
}

func (d *splitKnownDiscountLine) init(s *strategyState) {
	d.splitIndex = -1
	d.knownDiscountAmountInc = 0
	d.knownDiscountVatAmount = 0
	d.discountsPerRate = nil
	d.split = models.Line{}
	d.corrected = nil

	count := 0
	for _, i := range s.lines2Complete {
		if s.invoice.Lines[i].StrategySplit {
			d.splitIndex = i
			count++
		}
	}
	if count != 1 {
		d.splitIndex = -1
	}

	for _, line := range s.invoice.Lines {
		if line.LineDiscountAmountInc == nil || line.VatRate == nil {
			continue
		}
		switch line.VatRateSource {
		case models.VatRateSourceExact, models.VatRateSourceExact0, models.VatRateSourceCalculatedCorrected:
		default:
			continue
		}

		amountInc := *line.LineDiscountAmountInc
		rate := *line.VatRate
		d.knownDiscountAmountInc += amountInc
		d.knownDiscountVatAmount += amountInc / (100 + rate) * rate
		d.addDiscount(roundRate(rate), amountInc)
	}

	if d.splitIndex >= 0 {
		d.split = s.invoice.Lines[d.splitIndex]
		s.linesCompleted = []int{d.splitIndex}
	}
}

func (d *splitKnownDiscountLine) addDiscount(rate, amountInc float64) {
	for i := range d.discountsPerRate {
		if ratesAreEqual(d.discountsPerRate[i].rate, rate) {
			d.discountsPerRate[i].amount += amountInc
			return
		}
	}
	d.discountsPerRate = append(d.discountsPerRate, rateAmount{rate: rate, amount: amountInc})
}

func (d *splitKnownDiscountLine) checkPreconditions(s *strategyState) bool {
	if d.splitIndex < 0 || len(d.discountsPerRate) == 0 {
		return false
	}

	if matchesKnownDiscount(d.split, d.knownDiscountAmountInc, d.knownDiscountVatAmount) {
		return true
	}
	if d.correction == nil {
		return false
	}

	before := d.split
	d.split.UnitPrice = copyFloat(before.UnitPrice)
	d.split.UnitPriceInc = copyFloat(before.UnitPriceInc)
	if !d.correction(s.invoice, &d.split, d.knownDiscountAmountInc, d.knownDiscountVatAmount) {
		d.split = before
		return false
	}
	if before.UnitPrice != nil && !pricesAreEqual(before.UnitPrice, d.split.UnitPrice) {
		d.corrected = append(d.corrected, fmt.Sprintf("%s = %s", fieldUnitPrice, formatAmount(*before.UnitPrice)))
	}
	if before.UnitPriceInc != nil && !pricesAreEqual(before.UnitPriceInc, d.split.UnitPriceInc) {
		d.corrected = append(d.corrected, fmt.Sprintf("%s = %s", fieldUnitPriceInc, formatAmount(*before.UnitPriceInc)))
	}
	return true
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v)
}

func pricesAreEqual(a, b *float64) bool {
	return b != nil && floatsAreEqual(*a, *b, priceEpsilon)
}

func matchesKnownDiscount(split models.Line, amountInc, vatAmount float64) bool {
	if split.UnitPrice != nil && floatsAreEqual(*split.UnitPrice, amountInc-vatAmount, priceEpsilon) {
		return true
	}
	return split.UnitPriceInc != nil && floatsAreEqual(*split.UnitPriceInc, amountInc, priceEpsilon)
}

func (d *splitKnownDiscountLine) execute(s *strategyState) bool {
	for _, discount := range d.discountsPerRate {
		line := d.split
		line.Product = fmt.Sprintf("%s (%s%%)", d.split.Product, formatRate(discount.rate))
		line.Quantity = 1
		line.UnitPrice = nil
		line.UnitPriceInc = models.Float(discount.amount)
		line.VatAmount = nil
		line.Meta.LinePrice = nil
		line.Meta.LinePriceInc = nil
		s.completeLine(line, discount.rate)
	}

	if len(d.corrected) > 0 {
		s.invoice.AddDiagnostic(models.DiagnosticDiscountCorrected, d.splitIndex,
			fmt.Sprintf("%q: corrected to the known discounts, was %s", d.split.Product, strings.Join(d.corrected, ", ")))
	}
	s.description = fmt.Sprintf("SplitKnownDiscountLine(%s, %s)",
		formatAmount(d.knownDiscountAmountInc), formatAmount(d.knownDiscountVatAmount))
	return true
}

// CreditNoteDiscountCorrection overwrites the discount line of a credit note
// with the sum of the known line discounts. Some shops leave refunded costs,
// like shipping, out of the per line discounts of a refund, so its discount
// line differs from their sum. Prices the line does not carry stay unset.
func CreditNoteDiscountCorrection(invoice *models.Invoice, split *models.Line, knownAmountInc, knownVatAmount float64) bool {
	if invoice.Type != models.InvoiceTypeCreditNote {
		return false
	}

	corrected := false
	if split.UnitPrice != nil {
		split.UnitPrice = models.Float(knownAmountInc - knownVatAmount)
		corrected = true
	}
	if split.UnitPriceInc != nil {
		split.UnitPriceInc = models.Float(knownAmountInc)
		corrected = true
	}
	return corrected
}
