package invoice_test

import (
	"fmt"

	"github.com/gpasset/libAcumulus/internal/invoice"
	"github.com/gpasset/libAcumulus/pkg/models"
)

func ExampleCompletor_Complete() {
	inv := &models.Invoice{
		ID:        "1001",
		Amount:    models.Float(165),
		VatAmount: models.Float(26.40),
		Lines: []models.Line{
			{Product: "Book", Quantity: 1, UnitPrice: models.Float(100), VatRate: models.Float(21), VatRateSource: models.VatRateSourceExact},
			{Product: "Food", Quantity: 1, UnitPrice: models.Float(50), VatRate: models.Float(6), VatRateSource: models.VatRateSourceExact},
			{Product: "Shipping", Quantity: 1, UnitPriceInc: models.Float(17.40), VatRateSource: models.VatRateSourceStrategy, StrategySplit: true},
		},
	}
	rates := []models.VatRateCandidate{{Rate: 21, VatType: 1}, {Rate: 6, VatType: 1}}

	completor := invoice.NewCompletor(invoice.DefaultCompletionConfig())
	completor.Complete(inv, rates)

	for _, line := range inv.Lines {
		fmt.Printf("%s: %.2f at %g%%, vat %.2f\n", line.Product, *line.UnitPrice, *line.VatRate, *line.VatAmount)
	}
	fmt.Println(inv.Meta.StrategiesUsed)
	// Output:
	// Book: 100.00 at 21%, vat 21.00
	// Food: 50.00 at 6%, vat 3.00
	// Shipping 21% VAT: 10.00 at 21%, vat 2.10
	// Shipping 6% VAT: 5.00 at 6%, vat 0.30
	// [SplitLine(21, 5.00, 10.00)]
}

func ExampleApplyVatRange() {
	line := models.Line{Product: "Coffee", Quantity: 1, UnitPrice: models.Float(0.99)}
	invoice.ApplyVatRange(&line, 0.09, 0.99, invoice.CentPrecision, invoice.CentPrecision)

	fmt.Println(line.VatRateSource)
	fmt.Printf("%.1f <= 9 <= %.1f\n", *line.VatRateMin, *line.VatRateMax)
	// Output:
	// calculated
	// 8.5 <= 9 <= 9.6
}
