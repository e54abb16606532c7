package invoice

import (
	"fmt"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// splitLine divides the amount of the split lines over the two rates of the
// invoice, after giving the other strategy lines a single rate.
type splitLine struct {
	splitLines       []int
	otherLines       []int
	otherLinesAmount float64
	splitLinesAmount float64
}

func (sl *splitLine) Name() string {
	return "SplitLine"
}

func (sl *splitLine) init(s *strategyState) {
	sl.splitLines = nil
	sl.otherLines = nil
	sl.otherLinesAmount = 0

	for _, i := range s.lines2Complete {
		line := s.invoice.Lines[i]
		if line.StrategySplit {
			sl.splitLines = append(sl.splitLines, i)
		} else {
			sl.otherLines = append(sl.otherLines, i)
			sl.otherLinesAmount += deref(line.UnitPrice) * line.Qty()
		}
	}

	nonStrategyAmount := 0.0
	for _, line := range s.invoice.Lines {
		if line.VatRateSource != models.VatRateSourceStrategy {
			nonStrategyAmount += deref(line.UnitPrice) * line.Qty()
		}
	}
	sl.splitLinesAmount = s.invoiceAmount - nonStrategyAmount - sl.otherLinesAmount
}

func (sl *splitLine) checkPreconditions(s *strategyState) bool {
	if len(s.breakdown) != 2 || len(sl.splitLines) == 0 {
		return false
	}
	for _, i := range sl.otherLines {
		if s.invoice.Lines[i].UnitPrice == nil {
			return false
		}
	}
	return true
}

func (sl *splitLine) execute(s *strategyState) bool {
	maxRate, _ := s.maxRate()
	if sl.tryVatRate(s, maxRate.Rate) {
		return true
	}
	keyComponent, _ := s.maxAmount()
	if !ratesAreEqual(keyComponent.Rate, maxRate.Rate) {
		return sl.tryVatRate(s, keyComponent.Rate)
	}
	return false
}

// tryVatRate completes the other lines with rate and divides the rest of the
// VAT over the split lines.
func (sl *splitLine) tryVatRate(s *strategyState, rate float64) bool {
	s.replacingLines = nil

	otherVat := 0.0
	for _, i := range sl.otherLines {
		otherVat += s.completeLine(s.invoice.Lines[i], rate)
	}

	low, _ := s.minRate()
	high, _ := s.maxRate()
	lowAmount, highAmount := splitAmountOver2VatRates(sl.splitLinesAmount, s.vatToDivide-otherVat, low.Rate/100, high.Rate/100)
	if !haveSameSign(highAmount, lowAmount, sl.splitLinesAmount) {
		s.replacingLines = nil
		return false
	}

	weights := splitWeights(s.invoice, sl.splitLines)
	for n, i := range sl.splitLines {
		line := s.invoice.Lines[i]
		s.completeLine(splitPart(line, highAmount*weights[n], high.Rate), high.Rate)
		s.completeLine(splitPart(line, lowAmount*weights[n], low.Rate), low.Rate)
	}

	s.description = fmt.Sprintf("SplitLine(%s, %s, %s)", formatRate(rate), formatAmount(lowAmount), formatAmount(highAmount))
	return true
}

// splitWeights returns the share of each line in the amount to split. Lines
// are weighted by their price ex VAT, else by their price inc VAT, else equally.
func splitWeights(invoice *models.Invoice, indexes []int) []float64 {
	weights := make([]float64, len(indexes))
	for _, price := range []func(models.Line) *float64{
		func(l models.Line) *float64 { return l.UnitPrice },
		func(l models.Line) *float64 { return l.UnitPriceInc },
	} {
		total, complete := 0.0, true
		for n, i := range indexes {
			line := invoice.Lines[i]
			p := price(line)
			if p == nil {
				complete = false
				break
			}
			weights[n] = *p * line.Qty()
			total += weights[n]
		}
		if complete && !isZero(total, zeroEpsilon) {
			for n := range weights {
				weights[n] /= total
			}
			return weights
		}
	}

	for n := range weights {
		weights[n] = 1 / float64(len(indexes))
	}
	return weights
}

// splitPart returns the part of line that carries amount at rate.
func splitPart(line models.Line, amount, rate float64) models.Line {
	part := line
	qty := line.Qty()
	part.Product = fmt.Sprintf("%s %s%% VAT", line.Product, formatRate(rate))
	part.Quantity = qty
	part.UnitPrice = models.Float(amount / qty)
	part.UnitPriceInc = nil
	part.VatAmount = nil
	part.VatRate = nil
	part.Meta.LinePrice = nil
	part.Meta.LinePriceInc = nil
	part.Meta.CalculatedFields = append(append([]string(nil), line.Meta.CalculatedFields...), fieldUnitPrice)
	return part
}

// splitNonMatchingLine splits lines whose own price ex and inc VAT do not match
// a single rate over the lowest and highest rate of the invoice, keeping the
// VAT of the line.
type splitNonMatchingLine struct {
	candidates []int
}

func (sn *splitNonMatchingLine) Name() string {
	return "SplitNonMatchingLine"
}

func (sn *splitNonMatchingLine) init(s *strategyState) {
	sn.candidates = nil
	for _, i := range s.lines2Complete {
		line := s.invoice.Lines[i]
		if line.StrategySplit && line.Meta.LinePrice != nil && line.Meta.LinePriceInc != nil {
			sn.candidates = append(sn.candidates, i)
		}
	}
}

func (sn *splitNonMatchingLine) checkPreconditions(s *strategyState) bool {
	return len(sn.candidates) > 0 && len(s.breakdown) >= 2
}

func (sn *splitNonMatchingLine) execute(s *strategyState) bool {
	low, _ := s.minRate()
	high, _ := s.maxRate()

	s.linesCompleted = nil
	for _, i := range sn.candidates {
		line := s.invoice.Lines[i]
		amount := *line.Meta.LinePrice
		vat := *line.Meta.LinePriceInc - amount
		lowAmount, highAmount := splitAmountOver2VatRates(amount, vat, low.Rate/100, high.Rate/100)
		if !haveSameSign(highAmount, lowAmount, amount) {
			continue
		}
		s.completeLine(splitPart(line, highAmount, high.Rate), high.Rate)
		s.completeLine(splitPart(line, lowAmount, low.Rate), low.Rate)
		s.linesCompleted = append(s.linesCompleted, i)
	}

	if len(s.linesCompleted) == 0 {
		return false
	}
	s.description = fmt.Sprintf("SplitNonMatchingLine(%s, %s)", formatRate(low.Rate), formatRate(high.Rate))
	return true
}
