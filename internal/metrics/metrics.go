package metrics

import (
	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles batch completion metrics.
type Metrics struct {
	Registry *prometheus.Registry

	InvoicesTotal      *prometheus.CounterVec
	StrategiesTotal    *prometheus.CounterVec
	LinesTotal         *prometheus.CounterVec
	DiagnosticsTotal   *prometheus.CounterVec
	CompletionDuration prometheus.Histogram
}

// New constructs metrics on their own registry, so that several batch runs in
// one process do not collide.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		InvoicesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acumulus_invoices_total",
				Help: "Total invoices processed by status",
			},
			[]string{"status"},
		),
		StrategiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acumulus_strategy_successes_total",
				Help: "Total successful strategies by name",
			},
			[]string{"strategy"},
		),
		LinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acumulus_lines_total",
				Help: "Total completed lines by final vat rate source",
			},
			[]string{"source"},
		),
		DiagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acumulus_diagnostics_total",
				Help: "Total diagnostics by kind",
			},
			[]string{"kind"},
		),
		CompletionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "acumulus_completion_duration_seconds",
			Help:    "Invoice completion duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	m.Registry.MustRegister(
		m.InvoicesTotal,
		m.StrategiesTotal,
		m.LinesTotal,
		m.DiagnosticsTotal,
		m.CompletionDuration,
	)
	return m
}

// Observe records the outcome of one invoice.
func (m *Metrics) Observe(result models.CompletionResult) {
	m.InvoicesTotal.WithLabelValues(result.Status()).Inc()
	if result.Invoice == nil {
		return
	}
	m.CompletionDuration.Observe(result.Duration.Seconds())

	for _, line := range result.Invoice.Lines {
		m.LinesTotal.WithLabelValues(string(line.VatRateSource)).Inc()
	}
	for _, description := range result.Invoice.Meta.StrategiesUsed {
		m.StrategiesTotal.WithLabelValues(strategyName(description)).Inc()
	}
	for _, d := range result.Invoice.Meta.Diagnostics {
		m.DiagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
	}
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// strategyName strips the arguments from a strategy description:
// "SplitLine(21, 5.00, 10.00)" becomes "SplitLine".
func strategyName(description string) string {
	for i, r := range description {
		if r == '(' {
			return description[:i]
		}
	}
	return description
}
