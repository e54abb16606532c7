package cmd

import (
	"fmt"
	"os"

	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "acumulus",
	Short: "Complete and reconcile the VAT of shop invoices",
	Long: `acumulus completes the VAT data of invoices exported from web shops
before they are booked.

Lines whose VAT rate is missing or was computed from rounded amounts get an
admissible rate for the invoice's country. Lines that can only be resolved
against the invoice totals (shipping, discounts, fees) are split over the
rates on the invoice so that the line VAT adds up to the invoice VAT.

Whatever cannot be resolved is reported, never guessed.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("acumulus executed")

		_ = cmd.Help()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
