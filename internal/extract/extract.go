// Package extract defines the canonical extracted-invoice structure produced
// by the document-understanding step and consumed by the order service.
package extract

import "context"

// LineItem is one row of the invoice body. ProductID is whatever the
// extractor emitted: a numeric catalog id when it recognized the product, or
// a temporary string marker when it did not. Description is authoritative for
// resolution either way.
type LineItem struct {
	ProductID   any     `json:"productId"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// Totals uses pointers for the required monetary fields so that "absent" and
// "zero" stay distinguishable through JSON decoding.
type Totals struct {
	Subtotal  *float64 `json:"subtotal"`
	TaxRate   float64  `json:"taxRate,omitempty"`
	TaxAmount *float64 `json:"taxAmount"`
	Freight   *float64 `json:"freight,omitempty"`
	Total     *float64 `json:"total"`
}

type CustomerInfo struct {
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	CustomerID *int   `json:"customerId,omitempty"`
}

// Invoice is the extraction boundary shape: dates as YYYY-MM-DD strings,
// free-text line items, caller-supplied totals.
type Invoice struct {
	OrderDate      string        `json:"orderDate"`
	DueDate        string        `json:"dueDate,omitempty"`
	InvoiceNumber  string        `json:"invoiceNumber,omitempty"`
	CustomerInfo   *CustomerInfo `json:"customerInfo,omitempty"`
	LineItems      []LineItem    `json:"lineItems"`
	Totals         *Totals       `json:"totals"`
	Confidence     float64       `json:"confidence,omitempty"`
	ProcessingTime float64       `json:"processingTime,omitempty"`
}

// NumericProductID reports the line item's product id as an integer when the
// extractor supplied one. String markers and absent values return false.
func (li LineItem) NumericProductID() (int, bool) {
	switch v := li.ProductID.(type) {
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0
	case float64:
		// JSON numbers decode as float64.
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), v > 0
	default:
		return 0, false
	}
}

// Extractor turns an uploaded document into structured invoice data. The real
// implementation calls a document-understanding model; callers treat it as a
// black box returning this package's types.
type Extractor interface {
	Extract(ctx context.Context, filename string) (Invoice, error)
}
