package invoice

import (
	"fmt"
	"strings"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// correctCalculatedVatRates replaces the rate of calculated lines by the unique
// admissible rate within their [min, max] range. Lines without a unique match
// lose their rate; split eligible ones are handed to the strategies.
func (cc *completion) correctCalculatedVatRates() {
	for i := range cc.invoice.Lines {
		line := &cc.invoice.Lines[i]
		if line.VatRateSource == models.VatRateSourceCalculated {
			cc.correctVatRateByRange(i, line)
		}
	}
}

func (cc *completion) correctVatRateByRange(index int, line *models.Line) {
	low, high, ok := vatRateRange(line)
	if !ok {
		return
	}

	var matches []models.VatRateCandidate
	for _, candidate := range cc.rates {
		if candidate.Rate >= low && candidate.Rate <= high {
			matches = append(matches, candidate)
		}
	}

	if rate, unique := uniqueVatRate(matches); unique {
		line.VatRate = models.Float(rate)
		line.VatRateSource = models.VatRateSourceCalculatedCorrected
		cc.log.Debug().
			Int("line", index).
			Float64("rate", rate).
			Msg("Corrected calculated vat rate")
		return
	}

	line.VatRate = nil
	if len(matches) == 0 {
		line.Meta.VatRateMatches = "none"
		cc.invoice.AddDiagnostic(models.DiagnosticNoRateMatch, index,
			fmt.Sprintf("%q: no admissible vat rate between %s and %s", line.Product, formatRate(low), formatRate(high)))
	} else {
		line.Meta.VatRateMatches = formatCandidates(matches)
		cc.invoice.Meta.Diagnostics = append(cc.invoice.Meta.Diagnostics, models.Diagnostic{
			Kind:       models.DiagnosticAmbiguousRateMatch,
			Line:       index,
			Message:    fmt.Sprintf("%q: multiple admissible vat rates: %s", line.Product, line.Meta.VatRateMatches),
			Candidates: matches,
		})
	}
	if line.StrategySplit {
		line.VatRateSource = models.VatRateSourceStrategy
	}

	cc.log.Debug().
		Int("line", index).
		Str("matches", line.Meta.VatRateMatches).
		Bool("strategy", line.StrategySplit).
		Msg("Calculated vat rate could not be corrected")
}

// vatRateRange returns the band a calculated rate must be corrected within. A
// calculated rate without a band only matches itself.
func vatRateRange(line *models.Line) (float64, float64, bool) {
	if line.VatRateMin != nil && line.VatRateMax != nil {
		return *line.VatRateMin, *line.VatRateMax, true
	}
	if line.VatRate != nil {
		return *line.VatRate - rateEpsilon, *line.VatRate + rateEpsilon, true
	}
	return 0, 0, false
}

// uniqueVatRate returns the rate all matches share, if any. Matches differing
// in vat type only count as one rate.
func uniqueVatRate(matches []models.VatRateCandidate) (float64, bool) {
	if len(matches) == 0 {
		return 0, false
	}
	rate := matches[0].Rate
	for _, m := range matches[1:] {
		if !ratesAreEqual(m.Rate, rate) {
			return 0, false
		}
	}
	return rate, true
}

func formatCandidates(candidates []models.VatRateCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s(%d)", formatRate(c.Rate), c.VatType))
	}
	return strings.Join(parts, ",")
}

// completeLineRequiredData derives the price ex VAT of lines that only have a
// price inc VAT.
func (cc *completion) completeLineRequiredData() {
	for i := range cc.invoice.Lines {
		line := &cc.invoice.Lines[i]
		if line.UnitPrice != nil || line.UnitPriceInc == nil {
			continue
		}

		inc := *line.UnitPriceInc
		var ex float64
		hasRate := line.VatRate != nil && models.IsCorrectVatRateSource(line.VatRateSource)
		switch {
		case hasRate && line.CostPrice != nil:
			// Margin scheme: VAT is due over the margin only.
			rate := *line.VatRate
			cost := *line.CostPrice
			margin := inc - cost
			if margin > 0 {
				ex = cost + margin/(100+rate)*100
			} else {
				ex = inc
			}
		case hasRate:
			ex = inc / (100 + *line.VatRate) * 100
		case line.VatAmount != nil:
			ex = inc - *line.VatAmount
		default:
			continue
		}

		line.UnitPrice = models.Float(ex)
		line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldUnitPrice)
	}
}

// addVatRateToZeroPriceLines gives free lines whose rate is left to the
// completor the highest rate appearing on the invoice. A line with only a
// price inc VAT of 0 is free as well.
func (cc *completion) addVatRateToZeroPriceLines() {
	maxRate, found := 0.0, false
	for _, line := range cc.invoice.Lines {
		if line.VatRate != nil && (!found || *line.VatRate > maxRate) {
			maxRate = *line.VatRate
			found = true
		}
	}

	for i := range cc.invoice.Lines {
		line := &cc.invoice.Lines[i]
		if line.VatRateSource != models.VatRateSourceCompletorFilled || line.VatRate != nil {
			continue
		}
		switch {
		case line.UnitPrice != nil:
			if !isZero(*line.UnitPrice, zeroEpsilon) {
				continue
			}
		case line.UnitPriceInc != nil && isZero(*line.UnitPriceInc, zeroEpsilon):
			// Free whatever the rate.
			line.UnitPrice = models.Float(0)
			line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldUnitPrice)
		default:
			continue
		}
		if !found {
			cc.invoice.AddDiagnostic(models.DiagnosticNoRateToCopy, i,
				fmt.Sprintf("%q: free line but no other line has a vat rate", line.Product))
			continue
		}
		line.VatRate = models.Float(maxRate)
		line.VatRateSource = models.VatRateSourceCompletorCorrected
		line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldVatRate)
	}
}

// completeLineMetaData fills in the derived amounts of resolved lines and the
// line totals of lines waiting for a split.
func (cc *completion) completeLineMetaData() {
	for i := range cc.invoice.Lines {
		line := &cc.invoice.Lines[i]
		switch {
		case line.VatRate != nil && models.IsCorrectVatRateSource(line.VatRateSource):
			rate := *line.VatRate
			if line.UnitPrice != nil {
				ex := *line.UnitPrice
				if line.UnitPriceInc == nil {
					line.UnitPriceInc = models.Float(ex / 100 * (100 + rate))
					line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldUnitPriceInc)
				}
				if line.VatAmount == nil {
					line.VatAmount = models.Float(rate / 100 * ex)
					line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldVatAmount)
				}
			}
			if line.LineDiscountVatAmount != nil && line.LineDiscountAmountInc == nil && !isZero(rate, rateEpsilon) {
				line.LineDiscountAmountInc = models.Float(*line.LineDiscountVatAmount / rate * (100 + rate))
				line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldLineDiscountAmountInc)
			}
		case line.VatRateSource == models.VatRateSourceStrategy && line.StrategySplit:
			if line.UnitPrice != nil && line.UnitPriceInc != nil {
				qty := line.Qty()
				line.Meta.LinePrice = models.Float(*line.UnitPrice * qty)
				line.Meta.LinePriceInc = models.Float(*line.UnitPriceInc * qty)
			}
		}
	}
}
