// Package vatrates provides the admissible VAT rates per country.
package vatrates

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/invopop/gobl/num"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed rates.yaml
var defaultRates []byte

var (
	// ErrUnknownCountry is returned when the table has no rates for a country.
	ErrUnknownCountry = errors.New("no vat rates for country")

	// ErrInvalidRate is returned when a rate in the table cannot be parsed.
	ErrInvalidRate = errors.New("invalid vat rate")
)

// Lookup returns the admissible rates for a country.
type Lookup interface {
	Rates(ctx context.Context, countryCode string) ([]models.VatRateCandidate, error)
}

// Table is a Lookup backed by a YAML document.
type Table struct {
	countries map[string][]models.VatRateCandidate
	log       zerolog.Logger
}

type tableFile struct {
	Countries map[string][]struct {
		Rate    string `yaml:"rate"`
		VatType int    `yaml:"vat_type"`
	} `yaml:"countries"`
}

// Load reads the table from path, or returns the built in table if path is empty.
func Load(path string) (*Table, error) {
	const op = "vatrates.Load"

	if path == "" {
		return Parse(defaultRates)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, path, err)
	}
	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	return table, nil
}

// Parse builds a table from a YAML document.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse vat rate table: %w", err)
	}

	t := &Table{
		countries: make(map[string][]models.VatRateCandidate, len(f.Countries)),
		log:       logger.WithComponent("vatrates"),
	}
	for country, entries := range f.Countries {
		code := strings.ToUpper(strings.TrimSpace(country))
		for _, e := range entries {
			rate, err := ParsePercentage(e.Rate)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", code, err)
			}
			t.countries[code] = append(t.countries[code], models.VatRateCandidate{Rate: rate, VatType: e.VatType})
		}
	}

	t.log.Debug().Int("countries", len(t.countries)).Msg("Loaded vat rate table")
	return t, nil
}

// Rates returns the admissible rates for a country, in table order.
func (t *Table) Rates(ctx context.Context, countryCode string) ([]models.VatRateCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(countryCode))
	rates, ok := t.countries[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, countryCode)
	}
	return append([]models.VatRateCandidate(nil), rates...), nil
}

// Countries returns the country codes in the table, sorted.
func (t *Table) Countries() []string {
	codes := make([]string, 0, len(t.countries))
	for code := range t.countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ParsePercentage parses "21%", "21" or "5,5 %" into 21 or 5.5.
func ParsePercentage(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if !strings.HasSuffix(s, "%") {
		s += "%"
	}

	p, err := num.PercentageFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidRate, s, err)
	}
	rate, err := strconv.ParseFloat(p.StringWithoutSymbol(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidRate, s, err)
	}
	if rate < 0 || rate >= 100 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidRate, s)
	}
	return rate, nil
}
