package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/docuflow/invoice-extractor/internal/events"
	"github.com/docuflow/invoice-extractor/internal/extract"
	"github.com/docuflow/invoice-extractor/internal/models"
	"github.com/docuflow/invoice-extractor/internal/validation"
)

// OrderService turns validated extracted invoice data into a sales order:
// one header, one detail per line item, with customers and products resolved
// (created when missing) inside the same transaction.
type OrderService struct {
	db       *gorm.DB
	resolver *EntityResolver
	pub      *events.Publisher
	log      zerolog.Logger
}

func NewOrderService(db *gorm.DB, resolver *EntityResolver, pub *events.Publisher, log zerolog.Logger) *OrderService {
	return &OrderService{db: db, resolver: resolver, pub: pub, log: log}
}

type SaveResult struct {
	SalesOrderID     int    `json:"salesOrderId"`
	SalesOrderNumber string `json:"salesOrderNumber"`
	ItemCount        int    `json:"itemCount"`
}

// defaults carried over from the legacy schema so downstream reports keep
// working; the structs themselves stay free of column-default magic.
const (
	orderStatusShipped   = 5
	orderRevisionInitial = 1
	defaultShipMethodID  = 1
)

// SaveInvoice validates the extracted invoice and persists it atomically.
// Either all of customer (if new), products (if new), header and every detail
// row exist afterwards, or none do.
func (s *OrderService) SaveInvoice(ctx context.Context, inv extract.Invoice) (SaveResult, error) {
	orderDate, dueDate, err := validateInvoice(inv)
	if err != nil {
		return SaveResult{}, err
	}

	// Second-resolution timestamp; two saves within the same second produce
	// duplicate numbers. Known weakness of the format, kept as-is.
	orderNumber := "SO" + time.Now().Format("20060102150405")

	var header models.SalesOrderHeader
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var explicitID *int
		if inv.CustomerInfo != nil {
			explicitID = inv.CustomerInfo.CustomerID
		}
		customerID, err := s.resolver.ResolveCustomer(tx, explicitID)
		if err != nil {
			return err
		}

		freight := 0.0
		if inv.Totals.Freight != nil {
			freight = *inv.Totals.Freight
		}
		header = models.SalesOrderHeader{
			RevisionNumber:   orderRevisionInitial,
			OrderDate:        orderDate,
			DueDate:          dueDate,
			Status:           orderStatusShipped,
			OnlineOrderFlag:  true,
			SalesOrderNumber: orderNumber,
			CustomerID:       customerID,
			ShipMethodID:     defaultShipMethodID,
			SubTotal:         *inv.Totals.Subtotal,
			TaxAmt:           *inv.Totals.TaxAmount,
			Freight:          freight,
			TotalDue:         *inv.Totals.Total,
		}
		if err := tx.Create(&header).Error; err != nil {
			return &PersistenceError{Op: "create_order_header", Err: err}
		}

		for i, item := range inv.LineItems {
			productID, err := s.resolveLineProduct(tx, item)
			if err != nil {
				return err
			}
			if drift := item.LineTotal - float64(item.Quantity)*item.UnitPrice; math.Abs(drift) > 0.01 {
				// Trusted as provided; logged so the gap is observable.
				s.log.Warn().
					Int("line", i).
					Float64("line_total", item.LineTotal).
					Float64("computed", float64(item.Quantity)*item.UnitPrice).
					Msg("line total deviates from quantity*unitPrice")
			}
			detail := models.SalesOrderDetail{
				SalesOrderID:   header.SalesOrderID,
				OrderQty:       item.Quantity,
				ProductID:      productID,
				SpecialOfferID: 1,
				UnitPrice:      item.UnitPrice,
				LineTotal:      item.LineTotal,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return &PersistenceError{Op: "create_order_detail", Err: err}
			}
		}
		return nil
	})
	if txErr != nil {
		var ve *ValidationError
		var pe *PersistenceError
		if errors.As(txErr, &ve) || errors.As(txErr, &pe) {
			return SaveResult{}, txErr
		}
		return SaveResult{}, &PersistenceError{Op: "save_invoice", Err: txErr}
	}

	result := SaveResult{
		SalesOrderID:     header.SalesOrderID,
		SalesOrderNumber: orderNumber,
		ItemCount:        len(inv.LineItems),
	}
	s.pub.OrderSaved(ctx, events.OrderSaved{
		SalesOrderID:     result.SalesOrderID,
		SalesOrderNumber: result.SalesOrderNumber,
		CustomerID:       header.CustomerID,
		TotalDue:         header.TotalDue,
		ItemCount:        result.ItemCount,
		SavedAt:          time.Now().UTC(),
	})
	s.log.Info().
		Int("sales_order_id", result.SalesOrderID).
		Str("sales_order_number", result.SalesOrderNumber).
		Int("items", result.ItemCount).
		Msg("invoice saved")
	return result, nil
}

// resolveLineProduct honors a numeric extractor-supplied product id only when
// that product exists; anything else goes through description resolution so a
// detail row can never reference a missing product.
func (s *OrderService) resolveLineProduct(tx *gorm.DB, item extract.LineItem) (int, error) {
	if id, ok := item.NumericProductID(); ok {
		var p models.Product
		err := tx.First(&p, id).Error
		if err == nil {
			return p.ProductID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &PersistenceError{Op: "lookup_product", Err: err}
		}
	}
	return s.resolver.ResolveProduct(tx, item.Description, item.UnitPrice)
}

func validateInvoice(inv extract.Invoice) (orderDate, dueDate time.Time, err error) {
	v := validation.Violations{}
	orderDate = validation.ISODate("orderDate", inv.OrderDate, v)
	if !v.Empty() {
		return time.Time{}, time.Time{}, &ValidationError{Message: v.String()}
	}
	dueDate = orderDate
	if inv.DueDate != "" {
		dueDate = validation.ISODate("dueDate", inv.DueDate, v)
	}
	if inv.Totals == nil {
		v["totals"] = "required"
	} else {
		validation.RequiredNumber("totals.subtotal", inv.Totals.Subtotal, v)
		validation.RequiredNumber("totals.taxAmount", inv.Totals.TaxAmount, v)
		validation.RequiredNumber("totals.total", inv.Totals.Total, v)
	}
	if len(inv.LineItems) == 0 {
		v["lineItems"] = "required"
	}
	for _, item := range inv.LineItems {
		validation.Required("lineItems.description", item.Description, v)
		validation.PositiveInt("lineItems.quantity", item.Quantity, v)
		validation.NonNegativeFloat("lineItems.unitPrice", item.UnitPrice, v)
	}
	if !v.Empty() {
		return time.Time{}, time.Time{}, &ValidationError{Message: v.String()}
	}
	return orderDate, dueDate, nil
}

// OrderSummary is one row of the invoice history listing.
type OrderSummary struct {
	SalesOrderID     int     `json:"SalesOrderID"`
	OrderDate        string  `json:"OrderDate"`
	SalesOrderNumber string  `json:"SalesOrderNumber"`
	CustomerID       int     `json:"CustomerID"`
	AccountNumber    string  `json:"AccountNumber"`
	SubTotal         float64 `json:"SubTotal"`
	TaxAmt           float64 `json:"TaxAmt"`
	Freight          float64 `json:"Freight"`
	TotalDue         float64 `json:"TotalDue"`
	ItemCount        int64   `json:"ItemCount"`
	CreatedAt        string  `json:"CreatedAt"`
}

// History returns saved orders newest-first with per-order item counts.
func (s *OrderService) History(ctx context.Context, page, limit int) ([]OrderSummary, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	var orders []models.SalesOrderHeader
	if err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, &PersistenceError{Op: "list_orders", Err: err}
	}

	result := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		var itemCount int64
		if err := s.db.WithContext(ctx).
			Model(&models.SalesOrderDetail{}).
			Where("sales_order_id = ?", order.SalesOrderID).
			Count(&itemCount).Error; err != nil {
			return nil, &PersistenceError{Op: "count_order_items", Err: err}
		}
		var customer models.Customer
		account := ""
		if err := s.db.WithContext(ctx).First(&customer, order.CustomerID).Error; err == nil {
			account = customer.AccountNumber
		}
		result = append(result, OrderSummary{
			SalesOrderID:     order.SalesOrderID,
			OrderDate:        order.OrderDate.Format("2006-01-02"),
			SalesOrderNumber: order.SalesOrderNumber,
			CustomerID:       order.CustomerID,
			AccountNumber:    account,
			SubTotal:         order.SubTotal,
			TaxAmt:           order.TaxAmt,
			Freight:          order.Freight,
			TotalDue:         order.TotalDue,
			ItemCount:        itemCount,
			CreatedAt:        order.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result, nil
}

// OrderLine is one detail row joined to its product.
type OrderLine struct {
	SalesOrderDetailID int     `json:"SalesOrderDetailID"`
	ProductName        string  `json:"ProductName"`
	ProductNumber      string  `json:"ProductNumber"`
	OrderQty           int     `json:"OrderQty"`
	UnitPrice          float64 `json:"UnitPrice"`
	LineTotal          float64 `json:"LineTotal"`
}

// Details returns the detail rows of one order joined to product name/number.
func (s *OrderService) Details(ctx context.Context, orderID int) ([]OrderLine, error) {
	var header models.SalesOrderHeader
	if err := s.db.WithContext(ctx).First(&header, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, &PersistenceError{Op: "lookup_order", Err: err}
	}
	var lines []OrderLine
	err := s.db.WithContext(ctx).
		Table("sales_order_detail").
		Select("sales_order_detail.sales_order_detail_id, products.name AS product_name, products.product_number, sales_order_detail.order_qty, sales_order_detail.unit_price, sales_order_detail.line_total").
		Joins("JOIN products ON products.product_id = sales_order_detail.product_id").
		Where("sales_order_detail.sales_order_id = ?", orderID).
		Order("sales_order_detail.sales_order_detail_id").
		Scan(&lines).Error
	if err != nil {
		return nil, &PersistenceError{Op: "list_order_details", Err: err}
	}
	return lines, nil
}

// Delete removes an order's detail rows and header in one transaction.
func (s *OrderService) Delete(ctx context.Context, orderID int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var header models.SalesOrderHeader
		if err := tx.First(&header, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "order", ID: orderID}
			}
			return &PersistenceError{Op: "lookup_order", Err: err}
		}
		// Details go first so the FK relationship is never dangling.
		if err := tx.Where("sales_order_id = ?", orderID).Delete(&models.SalesOrderDetail{}).Error; err != nil {
			return &PersistenceError{Op: "delete_order_details", Err: err}
		}
		if err := tx.Delete(&header).Error; err != nil {
			return &PersistenceError{Op: "delete_order_header", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info().Int("sales_order_id", orderID).Msg("order deleted")
	return nil
}

// Stats aggregates catalog and order figures for the dashboard.
type Stats struct {
	TotalProducts     int64   `json:"totalProducts"`
	TotalCustomers    int64   `json:"totalCustomers"`
	TotalOrders       int64   `json:"totalOrders"`
	TotalRevenue      float64 `json:"totalRevenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
}

func (s *OrderService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Product{}).Count(&st.TotalProducts).Error; err != nil {
		return st, &PersistenceError{Op: "count_products", Err: err}
	}
	if err := db.Model(&models.Customer{}).Count(&st.TotalCustomers).Error; err != nil {
		return st, &PersistenceError{Op: "count_customers", Err: err}
	}
	if err := db.Model(&models.SalesOrderHeader{}).Count(&st.TotalOrders).Error; err != nil {
		return st, &PersistenceError{Op: "count_orders", Err: err}
	}
	var revenue, avg float64
	if err := db.Model(&models.SalesOrderHeader{}).Select("COALESCE(SUM(total_due), 0)").Scan(&revenue).Error; err != nil {
		return st, &PersistenceError{Op: "sum_revenue", Err: err}
	}
	if err := db.Model(&models.SalesOrderHeader{}).Select("COALESCE(AVG(total_due), 0)").Scan(&avg).Error; err != nil {
		return st, &PersistenceError{Op: "avg_order", Err: err}
	}
	st.TotalRevenue = math.Round(revenue*100) / 100
	st.AverageOrderValue = math.Round(avg*100) / 100
	return st, nil
}
