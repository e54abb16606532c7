package invoice

import (
	"fmt"
	"strings"
)

// applySameVatRate gives all strategy lines the same admissible rate.
type applySameVatRate struct {
	rates []float64
}

func (a *applySameVatRate) Name() string {
	return "ApplySameVatRate"
}

func (a *applySameVatRate) init(s *strategyState) {
	a.rates = distinctRates(s.rates)
}

func (a *applySameVatRate) checkPreconditions(s *strategyState) bool {
	return len(a.rates) > 0 && len(s.lines2Complete) > 0 && s.hasPrices(s.lines2Complete)
}

func (a *applySameVatRate) execute(s *strategyState) bool {
	tolerance := vatTolerance(len(s.lines2Complete))
	for _, rate := range a.rates {
		s.replacingLines = nil
		vat := 0.0
		for _, i := range s.lines2Complete {
			vat += s.completeLine(s.invoice.Lines[i], rate)
		}
		if floatsAreEqual(vat, s.vatToDivide, tolerance) {
			s.description = fmt.Sprintf("ApplySameVatRate(%s)", formatRate(rate))
			return true
		}
	}
	return false
}

// tryAllVatRatePermutations searches all combinations of admissible rates and
// 0 over the strategy lines. The first combination that matches the VAT to
// divide wins; combinations are tried highest rates first.
type tryAllVatRatePermutations struct {
	maxPermutations int
	rates           []float64
}

func (t *tryAllVatRatePermutations) Name() string {
	return "TryAllVatRatePermutations"
}

func (t *tryAllVatRatePermutations) init(s *strategyState) {
	t.rates = distinctRates(s.rates)
	if !containsRate(t.rates, 0) {
		t.rates = append(t.rates, 0)
	}
}

func (t *tryAllVatRatePermutations) checkPreconditions(s *strategyState) bool {
	if len(s.lines2Complete) == 0 || !s.hasPrices(s.lines2Complete) {
		return false
	}
	permutations := 1
	for range s.lines2Complete {
		permutations *= len(t.rates)
		if permutations > t.maxPermutations {
			return false
		}
	}
	return true
}

func (t *tryAllVatRatePermutations) execute(s *strategyState) bool {
	n := len(s.lines2Complete)
	tolerance := vatTolerance(n)
	choice := make([]int, n)

	for {
		s.replacingLines = nil
		vat := 0.0
		for k, i := range s.lines2Complete {
			vat += s.completeLine(s.invoice.Lines[i], t.rates[choice[k]])
		}
		if floatsAreEqual(vat, s.vatToDivide, tolerance) {
			s.description = fmt.Sprintf("TryAllVatRatePermutations(%s)", t.describe(choice))
			return true
		}

		k := n - 1
		for ; k >= 0; k-- {
			choice[k]++
			if choice[k] < len(t.rates) {
				break
			}
			choice[k] = 0
		}
		if k < 0 {
			return false
		}
	}
}

func (t *tryAllVatRatePermutations) describe(choice []int) string {
	parts := make([]string, len(choice))
	for k, c := range choice {
		parts[k] = formatRate(t.rates[c])
	}
	return strings.Join(parts, ", ")
}
