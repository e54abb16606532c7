package invoice

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// Tolerances. Each comparison site names the one it uses.
const (
	priceEpsilon   = 0.005  // prices and amounts
	zeroEpsilon    = 0.001  // zero price detection
	rateEpsilon    = 0.0005 // rates, equal when equal on 3 decimals
	splitEpsilon   = 0.005  // sign test of the two rate splitter
	vatLineEpsilon = 0.01   // VAT reconciliation, per line involved
)

func floatsAreEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func isZero(f, epsilon float64) bool {
	return math.Abs(f) < epsilon
}

func ratesAreEqual(a, b float64) bool {
	return floatsAreEqual(a, b, rateEpsilon)
}

// roundRate rounds a rate to 3 decimals, the precision rates are keyed on.
func roundRate(rate float64) float64 {
	return math.Round(rate*1000) / 1000
}

// vatTolerance is the allowed difference between computed and known VAT when n
// lines have been completed.
func vatTolerance(n int) float64 {
	if n < 1 {
		n = 1
	}
	return vatLineEpsilon * float64(n)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(roundRate(rate), 'f', -1, 64)
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// distinctRates returns the distinct rates of the candidates, highest first.
func distinctRates(candidates []models.VatRateCandidate) []float64 {
	var rates []float64
	for _, c := range candidates {
		if !containsRate(rates, c.Rate) {
			rates = append(rates, c.Rate)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(rates)))
	return rates
}

func containsRate(rates []float64, rate float64) bool {
	for _, r := range rates {
		if ratesAreEqual(r, rate) {
			return true
		}
	}
	return false
}

// splitAmountOver2VatRates divides amount over two rates, given as fractions,
// such that the VAT of both parts adds up to vat.
func splitAmountOver2VatRates(amount, vat, lowRate, highRate float64) (lowAmount, highAmount float64) {
	if floatsAreEqual(lowRate, highRate, rateEpsilon/100) {
		return 0, 0
	}
	highAmount = (vat - amount*lowRate) / (highRate - lowRate)
	lowAmount = amount - highAmount
	return lowAmount, highAmount
}

// haveSameSign reports whether all values are clearly negative or all clearly positive.
func haveSameSign(values ...float64) bool {
	allNegative, allPositive := true, true
	for _, v := range values {
		if !(v < -splitEpsilon) {
			allNegative = false
		}
		if !(v > splitEpsilon) {
			allPositive = false
		}
	}
	return allNegative || allPositive
}
