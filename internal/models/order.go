package models

import "time"

// SalesOrderHeader is created once per successfully saved invoice and never
// mutated afterwards. Defaults (revision, status, ship method) are filled in
// by the order service, not by column defaults, so the schema stays plain.
type SalesOrderHeader struct {
	SalesOrderID    int `gorm:"primaryKey"`
	RevisionNumber  int
	OrderDate       time.Time
	DueDate         time.Time
	ShipDate        *time.Time
	Status          int
	OnlineOrderFlag bool
	// Derived from the save timestamp; collisions within one second are a
	// documented weakness of the format, not silently corrected.
	SalesOrderNumber       string  `gorm:"size:50;index"`
	PurchaseOrderNumber    *string `gorm:"size:50"`
	AccountNumber          *string `gorm:"size:50"`
	CustomerID             int     `gorm:"index"`
	SalesPersonID          *int
	TerritoryID            *int
	BillToAddressID        *int
	ShipToAddressID        *int
	ShipMethodID           int
	CreditCardID           *int
	CreditCardApprovalCode *string `gorm:"size:50"`
	CurrencyRateID         *int
	SubTotal               float64
	TaxAmt                 float64
	Freight                float64
	TotalDue               float64
	CreatedAt              time.Time
}

func (SalesOrderHeader) TableName() string { return "sales_order_header" }

// SalesOrderDetail links one extracted line item to its resolved product.
// Quantity, unit price and line total are copied verbatim from extraction.
type SalesOrderDetail struct {
	SalesOrderDetailID    int     `gorm:"primaryKey"`
	SalesOrderID          int     `gorm:"not null;index"`
	CarrierTrackingNumber *string `gorm:"size:50"`
	OrderQty              int     `gorm:"not null"`
	ProductID             int     `gorm:"not null;index"`
	SpecialOfferID        int
	UnitPrice             float64
	UnitPriceDiscount     float64
	LineTotal             float64
}

func (SalesOrderDetail) TableName() string { return "sales_order_detail" }
