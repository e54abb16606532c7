package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Observe(models.CompletionResult{
		Invoice: &models.Invoice{
			Lines: []models.Line{
				{VatRateSource: models.VatRateSourceExact},
				{VatRateSource: models.VatRateSourceStrategyCompleted},
				{VatRateSource: models.VatRateSourceStrategyCompleted},
			},
			Meta: models.InvoiceMeta{StrategiesUsed: []string{"SplitLine(21, 5.00, 10.00)"}},
		},
		Duration: 2 * time.Millisecond,
	})
	m.Observe(models.CompletionResult{
		Invoice: &models.Invoice{
			Lines: []models.Line{{VatRateSource: models.VatRateSourceStrategy}},
			Meta: models.InvoiceMeta{
				Incomplete:  true,
				Diagnostics: []models.Diagnostic{{Kind: models.DiagnosticStrategyExhausted}},
			},
		},
	})
	m.Observe(models.CompletionResult{Err: errors.New("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesTotal.WithLabelValues(models.StatusComplete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesTotal.WithLabelValues(models.StatusIncomplete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesTotal.WithLabelValues(models.StatusError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesTotal.WithLabelValues(string(models.VatRateSourceStrategyCompleted))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrategiesTotal.WithLabelValues("SplitLine")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues(string(models.DiagnosticStrategyExhausted))))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, family := range families {
		if family.GetName() == "acumulus_completion_duration_seconds" {
			samples = family.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(models.CompletionResult{Invoice: &models.Invoice{}})

	path := filepath.Join(t.TempDir(), "acumulus.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `acumulus_invoices_total{status="complete"} 1`)
}

func TestStrategyName(t *testing.T) {
	assert.Equal(t, "TryAllVatRatePermutations", strategyName("TryAllVatRatePermutations(9, 21)"))
	assert.Equal(t, "Plain", strategyName("Plain"))
}
