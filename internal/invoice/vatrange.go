package invoice

import (
	"math"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// Default precision of amounts that were rounded to cents.
const CentPrecision = 0.01

// ApplyVatRange tags a line with the rate that follows from dividing a rounded
// VAT amount by a rounded amount ex VAT, the way shop data is read.
//
// A zero denominator leaves the rate to the completor, a zero numerator means
// no VAT. Otherwise the rate is marked calculated and bounded by the range the
// division can take given the precision of both operands.
func ApplyVatRange(line *models.Line, numerator, denominator, numeratorPrecision, denominatorPrecision float64) {
	line.VatRateMin = nil
	line.VatRateMax = nil

	switch {
	case math.Abs(denominator) <= denominatorPrecision/2:
		line.VatRate = nil
		line.VatRateSource = models.VatRateSourceCompletorFilled
	case isZero(numerator, zeroEpsilon):
		line.VatRate = models.Float(0)
		line.VatRateSource = models.VatRateSourceExact0
	default:
		low, high := divisionRange(numerator, denominator, numeratorPrecision, denominatorPrecision)
		line.VatRate = models.Float(100 * numerator / denominator)
		line.VatRateMin = models.Float(100 * low)
		line.VatRateMax = models.Float(100 * high)
		line.VatRateSource = models.VatRateSourceCalculated
	}
}

// divisionRange returns the smallest and largest value numerator/denominator
// can have when both are rounded to the given precision.
func divisionRange(numerator, denominator, numeratorPrecision, denominatorPrecision float64) (float64, float64) {
	low, high := math.Inf(1), math.Inf(-1)
	for _, n := range []float64{numerator - numeratorPrecision/2, numerator + numeratorPrecision/2} {
		for _, d := range []float64{denominator - denominatorPrecision/2, denominator + denominatorPrecision/2} {
			q := n / d
			low = math.Min(low, q)
			high = math.Max(high, q)
		}
	}
	return low, high
}
