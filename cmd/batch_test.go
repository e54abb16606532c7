package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gpasset/libAcumulus/internal/config"
	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/internal/vatrates"
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const splitInvoice = `{
  "id": "%s",
  "country_code": "NL",
  "amount": 165,
  "vat_amount": 28.05,
  "lines": [
    {"product": "Book", "quantity": 1, "unit_price": 100, "vat_rate": 21},
    {"product": "Food", "quantity": 1, "unit_price": 50, "vat_rate": 9},
    {"product": "Shipping", "unit_price_inc": 17.55, "strategy_split": true}
  ]
}`

func fmtInvoice(id string) string {
	return fmt.Sprintf(splitInvoice, id)
}

func testEngine(t *testing.T) *engine {
	t.Helper()
	table, err := vatrates.Load("")
	require.NoError(t, err)
	return &engine{
		cfg:       &config.Config{DefaultCountry: "NL", BatchWorkers: 2},
		rates:     table,
		completor: invoice.NewCompletor(invoice.DefaultCompletionConfig()),
	}
}

func writeInvoices(t *testing.T, dir string, docs map[string]string) {
	t.Helper()
	for name, doc := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o600))
	}
}

func TestCompleteInParallel(t *testing.T) {
	dir := t.TempDir()
	writeInvoices(t, dir, map[string]string{
		"a.json":      fmtInvoice("a"),
		"b.json":      fmtInvoice("b"),
		"broken.json": "{",
		"notes.txt":   "ignored",
	})

	files, err := findInvoiceFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	jobs := make([]workerJob, len(files))
	for i, path := range files {
		path := path
		jobs[i] = workerJob{
			Source: filepath.Base(path),
			Index:  i,
			Load:   func() (*models.Invoice, error) { return invoice.ReadInvoiceFile(path) },
		}
	}

	var seen int
	results := testEngine(t).completeInParallel(context.Background(), jobs, 2, zerolog.Nop(),
		func(done, total int, _ models.CompletionResult) {
			seen++
			assert.Equal(t, 3, total)
		})

	assert.Equal(t, 3, seen)
	require.Len(t, results, 3)
	assert.Equal(t, "a.json", results[0].Source)
	assert.Equal(t, models.StatusComplete, results[0].Status())
	assert.Equal(t, models.StatusComplete, results[1].Status())
	assert.Equal(t, models.StatusError, results[2].Status())
	assert.ErrorIs(t, results[2].Err, invoice.ErrInvalidInvoiceFile)

	assert.Equal(t, []string{"SplitLine(21, 5.00, 10.00)"}, results[0].Invoice.Meta.StrategiesUsed)

	counts := countStatuses(results)
	assert.Equal(t, 2, counts[models.StatusComplete])
	assert.Equal(t, 1, counts[models.StatusError])
}

func TestCompleteUnknownCountry(t *testing.T) {
	inv := &models.Invoice{ID: "x", CountryCode: "XX", Lines: []models.Line{{Product: "a"}}}
	result := testEngine(t).complete(context.Background(), "x.json", inv)
	assert.ErrorIs(t, result.Err, vatrates.ErrUnknownCountry)
	assert.Equal(t, models.StatusError, result.Status())
}

func TestCompleteInParallelCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loaded := false
	jobs := []workerJob{{
		Source: "a.json",
		Load: func() (*models.Invoice, error) {
			loaded = true
			return nil, nil
		},
	}}
	results := testEngine(t).completeInParallel(ctx, jobs, 1, zerolog.Nop(), nil)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.False(t, loaded)
}

func TestWriteCompletedInvoices(t *testing.T) {
	inv := &models.Invoice{ID: "a", Lines: []models.Line{{Product: "Book"}}}
	results := []models.CompletionResult{
		{Source: "a.json", Invoice: inv},
		{Source: "broken.json", Err: invoice.ErrInvalidInvoiceFile},
	}

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, writeCompletedInvoices(results, dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.completed.json", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, "a.completed.json"))
	require.NoError(t, err)
	var output CompletionOutput
	require.NoError(t, json.Unmarshal(data, &output))
	assert.Equal(t, "a", output.Invoice.ID)
	assert.Equal(t, models.StatusComplete, output.Metadata.Status)

	assert.Equal(t, []*models.Invoice{inv}, completedInvoices(results))
}
