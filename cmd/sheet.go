package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gpasset/libAcumulus/internal/sheets"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/spf13/cobra"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Complete the invoices kept in a Google Sheet",
	Long: `Read invoices from the "Invoices" and "Lines" tabs of a Google Sheet,
complete them and append the completed lines to a result tab.

The Invoices tab holds one invoice per row:
  ID, Number, Type, Country, Currency, Amount, Amount inc, VAT amount
The Lines tab holds one line per row, joined on the invoice id:
  Invoice, Product, Quantity, Unit price, Unit price inc, Cost price,
  VAT rate, VAT amount, Split

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL (or use --url)`,
	Example: `  # Complete the sheet in GOOGLE_SHEET_URL
  acumulus sheet

  # Complete without writing back
  acumulus sheet --dry-run

  # Write the result to another tab
  acumulus sheet --output-sheet "Completed 2026-10"`,
	Args: cobra.NoArgs,
	RunE: runSheet,
}

func init() {
	rootCmd.AddCommand(sheetCmd)

	sheetCmd.Flags().String("url", "", "Google Sheets URL (default: GOOGLE_SHEET_URL)")
	sheetCmd.Flags().String("output-sheet", sheets.CompletedSheet, "Tab to append the completed lines to")
	sheetCmd.Flags().Bool("dry-run", false, "Complete invoices but don't write to the sheet")
	sheetCmd.Flags().Int("timeout", 600, "Timeout in seconds")
}

func runSheet(cmd *cobra.Command, args []string) error {
	runID := uuid.NewString()
	log := runLogger(runID)

	sheetURL, _ := cmd.Flags().GetString("url")
	outputSheet, _ := cmd.Flags().GetString("output-sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	e, err := newEngine()
	if err != nil {
		return err
	}
	if sheetURL == "" {
		sheetURL = e.cfg.GoogleSheetURL
	}
	if sheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable or --url is required")
	}

	ctx, cancel := createCommandContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	sheetsService, err := sheets.NewSheetsService(ctx, sheetURL)
	if err != nil {
		return fmt.Errorf("failed to create Google Sheets service: %w", err)
	}

	invoices, err := sheets.NewDataReader(sheetsService).ReadInvoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to read invoices: %w", err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                         SHEET COMPLETION")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run: %s\n", runID)
	fmt.Printf("Invoices: %d\n\n", len(invoices))

	jobs := make([]workerJob, len(invoices))
	for i, inv := range invoices {
		inv := inv
		jobs[i] = workerJob{
			Source: sheets.InvoicesSheet + ":" + inv.ID,
			Index:  i,
			Load:   func() (*models.Invoice, error) { return inv, nil },
		}
	}
	results := e.completeInParallel(ctx, jobs, e.cfg.BatchWorkers, log, printProgress)

	counts := countStatuses(results)
	fmt.Println()
	fmt.Printf("Complete: %d, incomplete: %d, errors: %d\n",
		counts[models.StatusComplete], counts[models.StatusIncomplete], counts[models.StatusError])

	if !dryRun {
		completed := completedInvoices(results)
		if err := sheetsService.WriteCompletedLines(ctx, completed, outputSheet); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Printf("Sheet: %s (%d invoices)\n", outputSheet, len(completed))
	}

	log.Info().
		Int("invoices", len(invoices)).
		Int("complete", counts[models.StatusComplete]).
		Msg("Sheet completion finished")

	return nil
}
