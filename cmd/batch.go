package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/internal/metrics"
	"github.com/gpasset/libAcumulus/internal/report"
	"github.com/gpasset/libAcumulus/internal/sheets"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Complete all invoice documents in a folder",
	Long: `Complete every *.json invoice document in a folder with a pool of
parallel workers.

Completed invoices can be written next to each other in an output folder,
summarised in an XLSX report, appended to a Google Sheet and counted in a
Prometheus textfile. Every run gets a run id that is logged with every entry
and printed in the summary.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 8)
  METRICS_FILE - Prometheus textfile, used when --metrics-file is not set
  GOOGLE_SHEET_URL - Google Sheet for --sheet
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - Sheets credentials`,
	Example: `  # Complete all invoices and print a summary
  acumulus batch ./invoices --dry-run

  # Write completed invoices and an XLSX report
  acumulus batch ./invoices --output-dir ./completed --xlsx report.xlsx

  # Append the completed lines to the "Completed" tab of GOOGLE_SHEET_URL
  acumulus batch ./invoices --sheet Completed`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("output-dir", "", "Write completed invoices to this folder")
	batchCmd.Flags().String("xlsx", "", "Write an XLSX report to this file")
	batchCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")
	batchCmd.Flags().String("sheet", "", "Append completed lines to this tab of GOOGLE_SHEET_URL")
	batchCmd.Flags().Bool("dry-run", false, "Complete invoices but don't write any output")
	batchCmd.Flags().Int("timeout", 1800, "Timeout in seconds")
}

func runBatch(cmd *cobra.Command, args []string) error {
	runID := uuid.NewString()
	log := runLogger(runID)

	folderPath := args[0]
	outputDir, _ := cmd.Flags().GetString("output-dir")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	metricsPath, _ := cmd.Flags().GetString("metrics-file")
	sheetName, _ := cmd.Flags().GetString("sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	e, err := newEngine()
	if err != nil {
		return err
	}
	if metricsPath == "" {
		metricsPath = e.cfg.MetricsFile
	}

	log.Info().
		Str("folder", folderPath).
		Str("output_dir", outputDir).
		Str("sheet", sheetName).
		Bool("dry_run", dryRun).
		Msg("Starting batch completion")

	ctx, cancel := createCommandContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	files, err := findInvoiceFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find invoice files: %w", err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                         BATCH COMPLETION")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Folder: %s\n", folderPath)
	fmt.Printf("Run: %s\n", runID)
	if dryRun {
		fmt.Println("Mode: dry run (no output is written)")
	}
	fmt.Println()

	if len(files) == 0 {
		fmt.Println("No invoice documents found in folder.")
		return nil
	}

	jobs := make([]workerJob, len(files))
	for i, path := range files {
		path := path
		jobs[i] = workerJob{
			Source: filepath.Base(path),
			Index:  i,
			Load:   func() (*models.Invoice, error) { return invoice.ReadInvoiceFile(path) },
		}
	}

	numWorkers := e.cfg.BatchWorkers
	fmt.Printf("Completing %d invoices with %d parallel workers...\n\n", len(files), numWorkers)

	results := e.completeInParallel(ctx, jobs, numWorkers, log, printProgress)

	counts := countStatuses(results)
	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULT")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Complete: %d\n", counts[models.StatusComplete])
	if n := counts[models.StatusIncomplete]; n > 0 {
		fmt.Printf("Incomplete: %d\n", n)
	}
	if n := counts[models.StatusError]; n > 0 {
		fmt.Printf("Errors: %d\n", n)
	}
	fmt.Println()

	if !dryRun {
		if err := writeBatchOutputs(ctx, e, results, batchOutputs{
			outputDir:   outputDir,
			xlsxPath:    xlsxPath,
			metricsPath: metricsPath,
			sheetName:   sheetName,
		}, log); err != nil {
			return err
		}
	}

	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("total", len(results)).
		Int("complete", counts[models.StatusComplete]).
		Int("incomplete", counts[models.StatusIncomplete]).
		Int("errors", counts[models.StatusError]).
		Msg("Batch completion finished")

	return nil
}

type batchOutputs struct {
	outputDir   string
	xlsxPath    string
	metricsPath string
	sheetName   string
}

func writeBatchOutputs(ctx context.Context, e *engine, results []models.CompletionResult, out batchOutputs, log zerolog.Logger) error {
	if out.outputDir != "" {
		if err := writeCompletedInvoices(results, out.outputDir); err != nil {
			return err
		}
		fmt.Printf("Completed invoices: %s\n", out.outputDir)
	}

	if out.xlsxPath != "" {
		data, err := report.BuildCompletionXLSX(results)
		if err != nil {
			return fmt.Errorf("failed to build XLSX report: %w", err)
		}
		if err := os.WriteFile(out.xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write XLSX report: %w", err)
		}
		fmt.Printf("Report: %s\n", out.xlsxPath)
	}

	if out.metricsPath != "" {
		m := metrics.New()
		for _, r := range results {
			m.Observe(r)
		}
		if err := m.WriteTextfile(out.metricsPath); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		fmt.Printf("Metrics: %s\n", out.metricsPath)
	}

	if out.sheetName != "" {
		if e.cfg.GoogleSheetURL == "" {
			return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required for --sheet")
		}
		sheetsService, err := sheets.NewSheetsService(ctx, e.cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := sheetsService.WriteCompletedLines(ctx, completedInvoices(results), out.sheetName); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Printf("Sheet: %s\n", out.sheetName)
	}

	log.Debug().Msg("Batch outputs written")
	return nil
}

// findInvoiceFiles finds all JSON documents in the folder, sorted by path
func findInvoiceFiles(folderPath string) ([]string, error) {
	var files []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// writeCompletedInvoices writes every completed invoice as <name>.completed.json
func writeCompletedInvoices(results []models.CompletionResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	for _, r := range results {
		if r.Invoice == nil || r.Err != nil {
			continue
		}
		name := strings.TrimSuffix(r.Source, filepath.Ext(r.Source)) + ".completed.json"
		output := CompletionOutput{
			Invoice:     r.Invoice,
			Diagnostics: r.Invoice.Meta.Diagnostics,
			Metadata: CompletionMetadata{
				FileName:    r.Source,
				Country:     r.Invoice.CountryCode,
				Status:      r.Status(),
				ProcessedAt: time.Now(),
				Duration:    r.Duration,
			},
		}
		if err := writeJSON(output, filepath.Join(dir, name), zerolog.Nop()); err != nil {
			return err
		}
	}
	return nil
}

func completedInvoices(results []models.CompletionResult) []*models.Invoice {
	invoices := make([]*models.Invoice, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Invoice != nil {
			invoices = append(invoices, r.Invoice)
		}
	}
	return invoices
}
