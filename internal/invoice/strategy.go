package invoice

import (
	"fmt"
	"sort"

	"github.com/gpasset/libAcumulus/pkg/models"
)

// Strategy resolves the rates of the lines that could not be resolved on
// their own. The set of strategies is closed.
type Strategy interface {
	// Name identifies the strategy in meta data and logs.
	Name() string

	// init computes the strategy specific values from the shared state.
	init(s *strategyState)

	// checkPreconditions tells whether the strategy can apply to this invoice.
	checkPreconditions(s *strategyState) bool

	// execute tries to resolve lines. On success s.replacingLines holds the
	// lines replacing s.linesCompleted.
	execute(s *strategyState) bool
}

// strategyState is the state shared by all strategies. It is computed anew from
// the invoice before each strategy is applied.
type strategyState struct {
	invoice *models.Invoice
	rates   []models.VatRateCandidate

	vatAmount     float64 // Invoice VAT
	invoiceAmount float64 // Invoice total ex VAT
	vatToDivide   float64 // Invoice VAT not yet accounted for by resolved lines
	breakdown     []models.VatBreakdownEntry

	lines2Complete []int // Indexes of the strategy lines
	linesCompleted []int // Indexes of the lines a successful execute replaces
	replacingLines []models.Line
	description    string
}

func newStrategyState(invoice *models.Invoice, rates []models.VatRateCandidate) (*strategyState, bool) {
	vatAmount, invoiceAmount, ok := invoiceTotals(invoice)
	if !ok {
		return nil, false
	}

	s := &strategyState{
		invoice:       invoice,
		rates:         rates,
		vatAmount:     vatAmount,
		invoiceAmount: invoiceAmount,
	}
	s.initLines2Complete()
	s.initVatBreakdown()
	s.initVatToDivide()
	return s, true
}

func (s *strategyState) initLines2Complete() {
	for i, line := range s.invoice.Lines {
		if line.VatRateSource == models.VatRateSourceStrategy {
			s.lines2Complete = append(s.lines2Complete, i)
		}
	}
}

// initVatBreakdown aggregates the resolved lines per rate, lowest rate first.
// The VAT of an entry is its rate over its amount, not the sum of the VAT
// amounts of its lines.
func (s *strategyState) initVatBreakdown() {
	for _, line := range s.invoice.Lines {
		if line.VatRateSource == models.VatRateSourceStrategy || line.VatRate == nil {
			continue
		}
		rate := roundRate(*line.VatRate)
		qty := line.Qty()

		pos := -1
		for i := range s.breakdown {
			if ratesAreEqual(s.breakdown[i].Rate, rate) {
				pos = i
				break
			}
		}
		if pos < 0 {
			s.breakdown = append(s.breakdown, models.VatBreakdownEntry{Rate: rate})
			pos = len(s.breakdown) - 1
		}

		entry := &s.breakdown[pos]
		amount := deref(line.UnitPrice) * qty
		entry.VatAmount += rate / 100 * amount
		entry.Amount += amount
		entry.Count++
	}

	sort.Slice(s.breakdown, func(i, j int) bool {
		return s.breakdown[i].Rate < s.breakdown[j].Rate
	})
}

func (s *strategyState) initVatToDivide() {
	s.vatToDivide = s.vatAmount
	for _, line := range s.invoice.Lines {
		if line.VatRateSource != models.VatRateSourceStrategy {
			s.vatToDivide -= lineVatAmount(line) * line.Qty()
		}
	}
}

// lineVatAmount returns the VAT per unit of a non strategy line, 0 if unknown.
func lineVatAmount(line models.Line) float64 {
	if line.VatAmount != nil {
		return *line.VatAmount
	}
	if line.VatRate != nil && line.UnitPrice != nil {
		return *line.VatRate / 100 * *line.UnitPrice
	}
	return 0
}

func (s *strategyState) minRate() (models.VatBreakdownEntry, bool) {
	if len(s.breakdown) == 0 {
		return models.VatBreakdownEntry{}, false
	}
	return s.breakdown[0], true
}

func (s *strategyState) maxRate() (models.VatBreakdownEntry, bool) {
	if len(s.breakdown) == 0 {
		return models.VatBreakdownEntry{}, false
	}
	return s.breakdown[len(s.breakdown)-1], true
}

// maxAmount returns the key component of the invoice: the rate with the
// largest amount.
func (s *strategyState) maxAmount() (models.VatBreakdownEntry, bool) {
	if len(s.breakdown) == 0 {
		return models.VatBreakdownEntry{}, false
	}
	result := s.breakdown[0]
	for _, entry := range s.breakdown[1:] {
		if entry.Amount > result.Amount {
			result = entry
		}
	}
	return result, true
}

// completeLine gives the line the rate, completes its amounts and adds it to
// the replacing lines. It returns the VAT of the line.
func (s *strategyState) completeLine(line models.Line, rate float64) float64 {
	line.Meta.CalculatedFields = append([]string(nil), line.Meta.CalculatedFields...)
	if line.Quantity == 0 {
		line.Quantity = 1
	}
	line.VatRate = models.Float(rate)

	var vat float64
	if line.UnitPrice != nil {
		vat = rate / 100 * *line.UnitPrice
	} else {
		inc := deref(line.UnitPriceInc)
		vat = rate / (100 + rate) * inc
		line.UnitPrice = models.Float(inc - vat)
		line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldUnitPrice)
	}
	line.VatAmount = models.Float(vat)
	if line.UnitPriceInc == nil {
		line.UnitPriceInc = models.Float(*line.UnitPrice + vat)
		line.Meta.CalculatedFields = append(line.Meta.CalculatedFields, fieldUnitPriceInc)
	}

	s.replacingLines = append(s.replacingLines, line)
	return vat * line.Quantity
}

// hasPrices reports whether every given line has a price ex or inc VAT.
func (s *strategyState) hasPrices(indexes []int) bool {
	for _, i := range indexes {
		line := s.invoice.Lines[i]
		if line.UnitPrice == nil && line.UnitPriceInc == nil {
			return false
		}
	}
	return true
}

// completeStrategyLines applies the strategies in order until no strategy lines
// remain or all strategies have been tried.
func (c *Completor) completeStrategyLines(cc *completion) {
	invoice := cc.invoice
	if !hasStrategyLines(invoice) {
		return
	}

	state, ok := newStrategyState(invoice, cc.rates)
	if !ok {
		invoice.AddDiagnostic(models.DiagnosticMissingTotals, -1,
			"at least two of amount, amount inc and vat amount are required to resolve strategy lines")
		invoice.Meta.Incomplete = true
		cc.log.Warn().Msg("Cannot apply strategies without invoice totals")
		return
	}
	invoice.Meta.StrategyInput = &models.StrategyInput{
		VatRates:     cc.rates,
		VatToDivide:  state.vatToDivide,
		VatBreakdown: state.breakdown,
	}

	cc.log.Debug().
		Float64("vat_to_divide", state.vatToDivide).
		Int("lines", len(state.lines2Complete)).
		Interface("breakdown", state.breakdown).
		Msg("Starting strategies")

	for _, strategy := range c.strategies() {
		s, _ := newStrategyState(invoice, cc.rates)
		if !c.apply(strategy, s, cc) {
			continue
		}

		replaceLinesCompleted(invoice, s, strategy.Name())
		invoice.Meta.StrategiesUsed = append(invoice.Meta.StrategiesUsed, s.description)
		cc.log.Info().
			Str("strategy", strategy.Name()).
			Str("description", s.description).
			Int("lines_completed", len(s.linesCompleted)).
			Msg("Strategy succeeded")

		if !hasStrategyLines(invoice) {
			break
		}
	}

	if remaining, _ := newStrategyState(invoice, cc.rates); len(remaining.lines2Complete) > 0 {
		invoice.Meta.Incomplete = true
		invoice.AddDiagnostic(models.DiagnosticStrategyExhausted, -1,
			fmt.Sprintf("no strategy could resolve the remaining lines, vat to divide: %s", formatAmount(remaining.vatToDivide)))
		cc.log.Warn().Msg("Strategies exhausted")
	}
}

func (c *Completor) strategies() []Strategy {
	return []Strategy{
		&splitKnownDiscountLine{correction: c.config.DiscountCorrection},
		&splitNonMatchingLine{},
		&applySameVatRate{},
		&splitLine{},
		&tryAllVatRatePermutations{maxPermutations: c.config.MaxPermutations},
	}
}

func (c *Completor) apply(strategy Strategy, s *strategyState, cc *completion) bool {
	s.replacingLines = nil
	s.description = ""
	s.linesCompleted = append([]int(nil), s.lines2Complete...)

	strategy.init(s)
	if !strategy.checkPreconditions(s) {
		cc.invoice.Meta.PreconditionsFailed = append(cc.invoice.Meta.PreconditionsFailed, strategy.Name())
		cc.log.Debug().Str("strategy", strategy.Name()).Msg("Preconditions failed")
		return false
	}
	if !strategy.execute(s) {
		s.replacingLines = nil
		cc.log.Debug().Str("strategy", strategy.Name()).Msg("Strategy failed")
		return false
	}
	return true
}

// replaceLinesCompleted puts the replacing lines at the position of the first
// completed line and removes the completed lines. Diagnostics keep pointing at
// the same line; those on a completed line point at its first replacing line.
func replaceLinesCompleted(invoice *models.Invoice, s *strategyState, name string) {
	for i := range s.replacingLines {
		line := &s.replacingLines[i]
		if line.VatRateSource == models.VatRateSourceStrategy {
			line.VatRateSource = models.VatRateSourceStrategyCompleted
			line.Meta.StrategyUsed = name
		}
	}

	completed := make(map[int]bool, len(s.linesCompleted))
	for _, i := range s.linesCompleted {
		completed[i] = true
	}

	lines := make([]models.Line, 0, len(invoice.Lines)-len(completed)+len(s.replacingLines))
	moved := make([]int, len(invoice.Lines))
	insertedAt := -1
	for i, line := range invoice.Lines {
		if !completed[i] {
			moved[i] = len(lines)
			lines = append(lines, line)
			continue
		}
		if insertedAt < 0 {
			insertedAt = len(lines)
			lines = append(lines, s.replacingLines...)
		}
		moved[i] = insertedAt
	}
	invoice.Lines = lines

	for i := range invoice.Meta.Diagnostics {
		d := &invoice.Meta.Diagnostics[i]
		if d.Line >= 0 && d.Line < len(moved) {
			d.Line = moved[d.Line]
		}
	}
}

func hasStrategyLines(invoice *models.Invoice) bool {
	for _, line := range invoice.Lines {
		if line.VatRateSource == models.VatRateSourceStrategy {
			return true
		}
	}
	return false
}
