package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gpasset/libAcumulus/internal/config"
	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/internal/logger"
	"github.com/gpasset/libAcumulus/internal/vatrates"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/rs/zerolog"
)

// engine bundles what every command needs to complete invoices.
type engine struct {
	cfg       *config.Config
	rates     vatrates.Lookup
	completor invoice.VatCompletor
}

func newEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	table, err := vatrates.Load(cfg.VatRatesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load vat rates: %w", err)
	}

	return &engine{
		cfg:       cfg,
		rates:     table,
		completor: invoice.NewCompletor(cfg.GetCompletionConfig()),
	}, nil
}

// complete looks up the rates for the invoice's country and completes it.
func (e *engine) complete(ctx context.Context, source string, inv *models.Invoice) models.CompletionResult {
	result := models.CompletionResult{Source: source, Invoice: inv}

	country := inv.CountryCode
	if country == "" {
		country = e.cfg.DefaultCountry
	}
	rates, err := e.rates.Rates(ctx, country)
	if err != nil {
		result.Err = fmt.Errorf("invoice %s: %w", inv.ID, err)
		return result
	}

	start := time.Now()
	e.completor.Complete(inv, rates)
	result.Duration = time.Since(start)
	return result
}

// workerJob represents one invoice to complete
type workerJob struct {
	Source string
	Load   func() (*models.Invoice, error)
	Index  int
}

// completeInParallel completes the jobs using a worker pool pattern. Results
// keep the order of the jobs.
func (e *engine) completeInParallel(ctx context.Context, jobs []workerJob, numWorkers int, log zerolog.Logger, progress func(done, total int, result models.CompletionResult)) []models.CompletionResult {
	queue := make(chan workerJob, len(jobs))
	results := make([]models.CompletionResult, len(jobs))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range queue {
				log.Debug().
					Int("worker", workerID).
					Str("source", job.Source).
					Int("index", job.Index+1).
					Msg("Worker completing invoice")

				var result models.CompletionResult
				if err := ctx.Err(); err != nil {
					result = models.CompletionResult{Source: job.Source, Err: err}
				} else if inv, err := job.Load(); err != nil {
					result = models.CompletionResult{Source: job.Source, Err: err}
				} else {
					result = e.complete(ctx, job.Source, inv)
				}
				results[job.Index] = result

				mu.Lock()
				processedCount++
				if progress != nil {
					progress(processedCount, len(jobs), result)
				}
				mu.Unlock()
			}
		}(w)
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	wg.Wait()

	return results
}

// countStatuses counts results per status
func countStatuses(results []models.CompletionResult) map[string]int {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status()]++
	}
	return counts
}

// createCommandContext creates a context with timeout and signal handling
func createCommandContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// getStatusEmoji returns an emoji for the completion status
func getStatusEmoji(status string) string {
	switch status {
	case models.StatusComplete:
		return "✅"
	case models.StatusIncomplete:
		return "⚠️"
	case models.StatusError:
		return "❌"
	default:
		return "❓"
	}
}

func printProgress(done, total int, result models.CompletionResult) {
	fmt.Printf("[%d/%d] %s - %s", done, total, result.Source, getStatusEmoji(result.Status()))
	switch {
	case result.Err != nil:
		fmt.Printf(" (%s)", result.Err.Error())
	case len(result.Invoice.Meta.StrategiesUsed) > 0:
		fmt.Printf(" (%s)", strings.Join(result.Invoice.Meta.StrategiesUsed, ", "))
	}
	fmt.Println()
}

func runLogger(runID string) zerolog.Logger {
	return logger.WithRunID(runID).With().Str("component", "batch").Logger()
}
