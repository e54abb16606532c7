package invoice

import (
	"testing"

	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAmountOver2VatRates(t *testing.T) {
	low, high := splitAmountOver2VatRates(15, 2.40, 0.06, 0.21)
	assert.InDelta(t, 5.0, low, 0.000001)
	assert.InDelta(t, 10.0, high, 0.000001)

	low, high = splitAmountOver2VatRates(15, 0.5, 0.06, 0.21)
	assert.False(t, haveSameSign(high, low, 15))

	low, high = splitAmountOver2VatRates(15, 2.40, 0.21, 0.21)
	assert.Zero(t, low)
	assert.Zero(t, high)
}

func TestHaveSameSign(t *testing.T) {
	assert.True(t, haveSameSign(1, 2, 3))
	assert.True(t, haveSameSign(-1, -0.01, -3))
	assert.False(t, haveSameSign(1, -2, 3))
	assert.False(t, haveSameSign(1, 0.004, 3))
}

func TestRateHelpers(t *testing.T) {
	assert.True(t, ratesAreEqual(21, 21.0004))
	assert.False(t, ratesAreEqual(21, 21.001))
	assert.Equal(t, 5.5, roundRate(5.50004))
	assert.Equal(t, "5.5", formatRate(5.5))
	assert.Equal(t, "21", formatRate(21.0001))
	assert.Equal(t, "-17.40", formatAmount(-17.400000000000002))

	rates := distinctRates([]models.VatRateCandidate{
		{Rate: 9, VatType: 1}, {Rate: 21, VatType: 1}, {Rate: 0, VatType: 1}, {Rate: 21, VatType: 5},
	})
	assert.Equal(t, []float64{21, 9, 0}, rates)

	assert.Equal(t, 0.01, vatTolerance(0))
	assert.InDelta(t, 0.03, vatTolerance(3), 1e-12)
}

func TestStrategyStateBreakdown(t *testing.T) {
	inv := &models.Invoice{
		Amount:    models.Float(180),
		VatAmount: models.Float(27.90),
		Lines: []models.Line{
			{Product: "a", Quantity: 2, UnitPrice: models.Float(50), VatRate: models.Float(21), VatRateSource: models.VatRateSourceExact},
			{Product: "b", UnitPrice: models.Float(60), VatRate: models.Float(6), VatAmount: models.Float(3.61), VatRateSource: models.VatRateSourceExact},
			{Product: "c", UnitPrice: models.Float(10), VatRate: models.Float(6.0001), VatRateSource: models.VatRateSourceCalculatedCorrected},
			{Product: "d", UnitPriceInc: models.Float(12), VatRateSource: models.VatRateSourceStrategy, StrategySplit: true},
		},
	}

	s, ok := newStrategyState(inv, nil)
	require.True(t, ok)

	assert.Equal(t, []int{3}, s.lines2Complete)
	require.Len(t, s.breakdown, 2)
	assert.Equal(t, 6.0, s.breakdown[0].Rate)
	assert.Equal(t, 2, s.breakdown[0].Count)
	assert.InDelta(t, 70, s.breakdown[0].Amount, 0.000001)
	assert.InDelta(t, 4.20, s.breakdown[0].VatAmount, 0.000001)
	assert.Equal(t, 21.0, s.breakdown[1].Rate)
	assert.InDelta(t, 100, s.breakdown[1].Amount, 0.000001)
	assert.InDelta(t, 21, s.breakdown[1].VatAmount, 0.000001)

	// The VAT to divide uses the VAT amounts of the lines themselves.
	assert.InDelta(t, 27.90-21-3.61-0.60, s.vatToDivide, 0.0001)

	low, _ := s.minRate()
	high, _ := s.maxRate()
	key, _ := s.maxAmount()
	assert.Equal(t, 6.0, low.Rate)
	assert.Equal(t, 21.0, high.Rate)
	assert.Equal(t, 21.0, key.Rate)
}

func TestStrategyStateNeedsTotals(t *testing.T) {
	_, ok := newStrategyState(&models.Invoice{AmountInc: models.Float(121)}, nil)
	assert.False(t, ok)

	s, ok := newStrategyState(&models.Invoice{AmountInc: models.Float(121), VatAmount: models.Float(21)}, nil)
	require.True(t, ok)
	assert.Equal(t, 100.0, s.invoiceAmount)
}

func TestCompleteLine(t *testing.T) {
	s := &strategyState{}

	vat := s.completeLine(models.Line{Product: "inc only", UnitPriceInc: models.Float(121)}, 21)
	assert.InDelta(t, 21, vat, 0.000001)

	vat = s.completeLine(models.Line{Product: "ex", Quantity: 3, UnitPrice: models.Float(10)}, 9)
	assert.InDelta(t, 2.70, vat, 0.000001)

	require.Len(t, s.replacingLines, 2)
	first := s.replacingLines[0]
	assert.Equal(t, 1.0, first.Quantity)
	assert.InDelta(t, 100, *first.UnitPrice, 0.000001)
	assert.Equal(t, []string{fieldUnitPrice}, first.Meta.CalculatedFields)

	second := s.replacingLines[1]
	assert.InDelta(t, 0.90, *second.VatAmount, 0.000001)
	assert.InDelta(t, 10.90, *second.UnitPriceInc, 0.000001)
}

func TestDivisionRange(t *testing.T) {
	low, high := divisionRange(2.10, 10, 0.01, 0.01)
	assert.InDelta(t, 2.095/10.005, low, 1e-12)
	assert.InDelta(t, 2.105/9.995, high, 1e-12)

	low, high = divisionRange(-2.10, -10, 0.01, 0.01)
	assert.Less(t, low, 0.21)
	assert.Greater(t, high, 0.21)
}
