package extract

import "context"

func float(v float64) *float64 { return &v }
func intp(v int) *int          { return &v }

// Simulated is the stand-in extractor used until a real model is wired in.
// It returns a fixed invoice regardless of input, matching the sample
// document the pipeline was built against.
type Simulated struct{}

func (Simulated) Extract(_ context.Context, _ string) (Invoice, error) {
	return Invoice{
		OrderDate:     "2014-05-01",
		DueDate:       "2014-05-31",
		InvoiceNumber: "12345",
		CustomerInfo: &CustomerInfo{
			Name:       "[Your Company Name]",
			Address:    "[Street Address], [City, ST ZIP], [Phone]",
			CustomerID: intp(125),
		},
		LineItems: []LineItem{
			{ProductID: "TEMP_XYZ", Description: "Product XYZ", Quantity: 15, UnitPrice: 150.00, LineTotal: 2250.00},
			{ProductID: "TEMP_ABC", Description: "Product ABC", Quantity: 1, UnitPrice: 75.00, LineTotal: 75.00},
		},
		Totals: &Totals{
			Subtotal:  float(2325.00),
			TaxRate:   0.06875,
			TaxAmount: float(159.84),
			Freight:   float(0),
			Total:     float(2484.84),
		},
		Confidence:     0.94,
		ProcessingTime: 2.1,
	}, nil
}
