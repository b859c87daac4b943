package models

// Customer rows are synthesized on demand: extraction may name an explicit
// customer id, in which case the resolver creates the row with exactly that
// id if it is missing. AccountNumber is always derived from CustomerID.
type Customer struct {
	CustomerID    int  `gorm:"primaryKey;autoIncrement:false"`
	PersonID      *int
	StoreID       *int
	TerritoryID   int
	AccountNumber string `gorm:"size:50;index"`
}

func (Customer) TableName() string { return "customers" }
