package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/gpasset/libAcumulus/internal/vatrates"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete [invoice.json]",
	Short: "Complete the VAT data of one invoice",
	Long: `Read an invoice document, look up the admissible VAT rates for its
country and complete the VAT data of its lines.

The output is a JSON document holding the completed invoice, the diagnostics
raised while completing it and processing metadata. An invoice that could not
be completed fully is still written, with "incomplete" set in its meta data.

Optional environment variables:
  VAT_RATES_FILE - YAML rate table (default: built in table)
  DEFAULT_COUNTRY - Country of invoices without a country code (default: NL)
  MAX_PERMUTATIONS - Bound on the rate permutation search (default: 4096)
  CREDIT_NOTE_DISCOUNT_CORRECTION - Correct credit note discount lines to the known discounts`,
	Example: `  # Complete an invoice to stdout
  acumulus complete 1001.json

  # Save the completed invoice to a file
  acumulus complete 1001.json -o 1001.completed.json

  # Fail when the invoice could not be completed
  acumulus complete 1001.json --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

// CompletionOutput represents the JSON output structure of a completion
type CompletionOutput struct {
	Invoice     *models.Invoice     `json:"invoice"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
	Metadata    CompletionMetadata  `json:"metadata"`
}

// CompletionMetadata contains information about the completion run
type CompletionMetadata struct {
	FileName         string        `json:"file_name"`
	Country          string        `json:"country"`
	Status           string        `json:"status"`
	ProcessedAt      time.Time     `json:"processed_at"`
	Duration         time.Duration `json:"duration"`
	ValidationErrors []string      `json:"validation_errors,omitempty"`
}

// ErrIncomplete is returned in strict mode when an invoice was not completed.
var ErrIncomplete = errors.New("invoice could not be completed")

func init() {
	rootCmd.AddCommand(completeCmd)

	completeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	completeCmd.Flags().String("country", "", "Override the country of the invoice")
	completeCmd.Flags().Bool("strict", false, "Exit with an error when the invoice is incomplete")
	completeCmd.Flags().Int("timeout", 30, "Timeout in seconds")
}

func runComplete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("complete")

	outputPath, _ := cmd.Flags().GetString("output")
	country, _ := cmd.Flags().GetString("country")
	strict, _ := cmd.Flags().GetBool("strict")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	invoicePath := args[0]

	ctx, cancel := createCommandContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	e, err := newEngine()
	if err != nil {
		return err
	}

	inv, err := invoice.ReadInvoiceFile(invoicePath)
	if err != nil {
		return handleCompleteError(err, invoicePath, log)
	}
	if country != "" {
		inv.CountryCode = country
	}

	invLog := logger.WithInvoice(log, inv.ID, invoicePath)

	var validationErrors []string
	if valid, problems := e.completor.ValidateInvoice(inv); !valid {
		validationErrors = problems
		for _, p := range problems {
			invLog.Warn().Str("problem", p).Msg("Invoice does not validate")
		}
	}

	result := e.complete(ctx, filepath.Base(invoicePath), inv)
	if result.Err != nil {
		return handleCompleteError(result.Err, invoicePath, log)
	}

	invLog.Info().
		Str("status", result.Status()).
		Strs("strategies", inv.Meta.StrategiesUsed).
		Int("diagnostics", len(inv.Meta.Diagnostics)).
		Dur("duration", result.Duration).
		Msg("Invoice completed")

	output := CompletionOutput{
		Invoice:     inv,
		Diagnostics: inv.Meta.Diagnostics,
		Metadata: CompletionMetadata{
			FileName:         filepath.Base(invoicePath),
			Country:          inv.CountryCode,
			Status:           result.Status(),
			ProcessedAt:      time.Now(),
			Duration:         result.Duration,
			ValidationErrors: validationErrors,
		},
	}
	if output.Metadata.Country == "" {
		output.Metadata.Country = e.cfg.DefaultCountry
	}

	if err := writeJSON(output, outputPath, log); err != nil {
		return err
	}

	if strict && result.Status() != models.StatusComplete {
		return fmt.Errorf("%s: %w", invoicePath, ErrIncomplete)
	}
	return nil
}

// handleCompleteError provides user-friendly error messages
func handleCompleteError(err error, path string, log zerolog.Logger) error {
	log.Error().Err(err).Str("file", path).Msg("Invoice completion failed")

	var validationErr *invoice.ValidationError
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("invoice file not found: %s", path)
	case errors.As(err, &validationErr):
		return fmt.Errorf("invoice %s has an invalid field %s: %s", path, validationErr.Field, validationErr.Message)
	case errors.Is(err, invoice.ErrEmptyInvoice):
		return fmt.Errorf("invoice %s has no lines", path)
	case errors.Is(err, invoice.ErrInvalidInvoiceFile):
		return fmt.Errorf("invoice %s is not a valid invoice document: %w", path, err)
	case errors.Is(err, vatrates.ErrUnknownCountry):
		return fmt.Errorf("%w. Set the country of the invoice, use --country or add the country to VAT_RATES_FILE", err)
	default:
		return fmt.Errorf("invoice completion failed: %w", err)
	}
}

// writeJSON writes the output as indented JSON to the file or stdout
func writeJSON(output interface{}, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(jsonData))
		return nil
	}

	if err := os.WriteFile(outputPath, append(jsonData, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output", outputPath).Msg("Output written")
	return nil
}
