// Package report renders batch completion results for accountants.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gpasset/libAcumulus/pkg/models"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "summary"
	LinesSheet   = "lines"
)

var (
	summaryHeaders = []string{"Source", "Invoice", "Status", "Lines", "Strategies", "Diagnostics", "Error"}
	linesHeaders   = []string{"Invoice", "Product", "Quantity", "Unit price", "Unit price inc", "VAT rate", "VAT amount", "VAT rate source", "Strategy"}
)

// BuildCompletionXLSX renders one summary row per invoice and one row per
// completed line.
func BuildCompletionXLSX(results []models.CompletionResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(LinesSheet); err != nil {
		return nil, err
	}

	setRow(f, SummarySheet, 1, toValues(summaryHeaders))
	setRow(f, LinesSheet, 1, toValues(linesHeaders))

	lineRow := 2
	for i, result := range results {
		summary := []interface{}{result.Source, "", result.Status(), 0, "", "", ""}
		if result.Err != nil {
			summary[6] = result.Err.Error()
		}

		if inv := result.Invoice; inv != nil {
			summary[1] = inv.ID
			summary[3] = len(inv.Lines)
			summary[4] = strings.Join(inv.Meta.StrategiesUsed, "; ")
			summary[5] = diagnosticSummary(inv.Meta.Diagnostics)

			for _, line := range inv.Lines {
				setRow(f, LinesSheet, lineRow, []interface{}{
					inv.ID,
					line.Product,
					line.Qty(),
					cellValue(line.UnitPrice),
					cellValue(line.UnitPriceInc),
					cellValue(line.VatRate),
					cellValue(line.VatAmount),
					string(line.VatRateSource),
					line.Meta.StrategyUsed,
				})
				lineRow++
			}
		}

		setRow(f, SummarySheet, i+2, summary)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("BuildCompletionXLSX: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toValues(headers []string) []interface{} {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	return values
}

// cellValue leaves absent amounts empty instead of writing 0.
func cellValue(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func diagnosticSummary(diagnostics []models.Diagnostic) string {
	parts := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		parts = append(parts, fmt.Sprintf("%s: %s", d.Kind, d.Message))
	}
	return strings.Join(parts, "\n")
}
