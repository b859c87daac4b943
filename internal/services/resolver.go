package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/docuflow/invoice-extractor/internal/models"
)

// EntityResolver maps loosely-identified external entities (products by
// description, customers by id) onto canonical rows, creating missing ones.
//
// Product and customer ids are application-assigned (max existing + 1), which
// is a read-then-write pattern; the mutex holds across the read and the
// insert so concurrent saves cannot compute the same next id. Callers pass
// the transaction handle of the surrounding save so every created row commits
// or rolls back with the order that needed it.
type EntityResolver struct {
	mu sync.Mutex
}

func NewEntityResolver() *EntityResolver { return &EntityResolver{} }

const defaultTerritoryID = 1

// ResolveProduct returns the id of the product whose name exactly matches
// description, creating it when absent. The extracted line price wins for the
// order detail either way; for a new product it also seeds the catalog price
// (ListPrice = unitPrice, StandardCost at an assumed 30% margin).
func (r *EntityResolver) ResolveProduct(tx *gorm.DB, description string, unitPrice float64) (int, error) {
	if strings.TrimSpace(description) == "" {
		return 0, validationf("lineItems.description: required")
	}
	if unitPrice <= 0 {
		return 0, validationf("lineItems.unitPrice: must_be_positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing models.Product
	err := tx.Where("name = ?", description).First(&existing).Error
	if err == nil {
		return existing.ProductID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &PersistenceError{Op: "lookup_product", Err: err}
	}

	newID, err := nextID(tx, &models.Product{}, "product_id")
	if err != nil {
		return 0, &PersistenceError{Op: "next_product_id", Err: err}
	}
	p := models.Product{
		ProductID:         newID,
		Name:              description,
		ProductNumber:     fmt.Sprintf("PN-%06d", newID),
		MakeFlag:          true,
		FinishedGoodsFlag: true,
		StandardCost:      unitPrice * 0.7,
		ListPrice:         unitPrice,
	}
	if err := tx.Create(&p).Error; err != nil {
		return 0, &PersistenceError{Op: "create_product", Err: err}
	}
	return newID, nil
}

// ResolveCustomer returns a usable customer id. An explicit id is honored:
// if the row exists nothing is written, otherwise a row is synthesized with
// exactly that id. Without an explicit id the next available one is assigned.
func (r *EntityResolver) ResolveCustomer(tx *gorm.DB, customerID *int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if customerID != nil {
		// Caller-controlled primary key; validate before use.
		if *customerID <= 0 {
			return 0, validationf("customerInfo.customerId: must_be_positive")
		}
		var existing models.Customer
		err := tx.First(&existing, *customerID).Error
		if err == nil {
			return existing.CustomerID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &PersistenceError{Op: "lookup_customer", Err: err}
		}
		if err := createCustomer(tx, *customerID); err != nil {
			return 0, err
		}
		return *customerID, nil
	}

	newID, err := nextID(tx, &models.Customer{}, "customer_id")
	if err != nil {
		return 0, &PersistenceError{Op: "next_customer_id", Err: err}
	}
	if err := createCustomer(tx, newID); err != nil {
		return 0, err
	}
	return newID, nil
}

func createCustomer(tx *gorm.DB, id int) error {
	c := models.Customer{
		CustomerID:    id,
		TerritoryID:   defaultTerritoryID,
		AccountNumber: AccountNumber(id),
	}
	if err := tx.Create(&c).Error; err != nil {
		return &PersistenceError{Op: "create_customer", Err: err}
	}
	return nil
}

// AccountNumber derives the zero-padded account number for a customer id.
func AccountNumber(customerID int) string {
	return fmt.Sprintf("AC%06d", customerID)
}

func nextID(tx *gorm.DB, model any, column string) (int, error) {
	var maxID int64
	if err := tx.Model(model).Select("COALESCE(MAX(" + column + "), 0)").Scan(&maxID).Error; err != nil {
		return 0, err
	}
	return int(maxID) + 1, nil
}
