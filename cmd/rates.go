package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/gpasset/libAcumulus/internal/vatrates"
	"github.com/spf13/cobra"
)

var ratesCmd = &cobra.Command{
	Use:   "rates [country]",
	Short: "List the admissible VAT rates per country",
	Long: `List the VAT rates the completor may assign to lines of invoices from a
country. Without a country all countries of the rate table are listed.

The rate table is read from VAT_RATES_FILE, or the built in table is used.`,
	Example: `  # List all countries
  acumulus rates

  # List the Dutch rates
  acumulus rates nl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRates,
}

func init() {
	rootCmd.AddCommand(ratesCmd)
}

func runRates(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("rates")

	e, err := newEngine()
	if err != nil {
		return err
	}
	table, ok := e.rates.(*vatrates.Table)
	if !ok {
		return fmt.Errorf("rate table does not support listing")
	}

	countries := table.Countries()
	if len(args) == 1 {
		countries = []string{strings.ToUpper(args[0])}
	}

	for _, country := range countries {
		rates, err := table.Rates(context.Background(), country)
		if err != nil {
			log.Error().Err(err).Str("country", country).Msg("Rate lookup failed")
			return err
		}
		parts := make([]string, 0, len(rates))
		for _, r := range rates {
			parts = append(parts, fmt.Sprintf("%s%% (type %d)", strconv.FormatFloat(r.Rate, 'f', -1, 64), r.VatType))
		}
		fmt.Printf("%s: %s\n", country, strings.Join(parts, ", "))
	}
	return nil
}
