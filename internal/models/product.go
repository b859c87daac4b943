package models

// Product is a catalog row. Rows are created lazily by the entity resolver
// when an extracted line item carries a description no existing product
// matches; Name is the de-duplication key for that path.
//
// ProductID is application-assigned (max existing + 1), not a DB sequence,
// so that ids stay stable across the sqlite and postgres backends.
type Product struct {
	ProductID            int    `gorm:"primaryKey;autoIncrement:false"`
	Name                 string `gorm:"size:255;index"`
	ProductNumber        string `gorm:"size:50"`
	MakeFlag             bool
	FinishedGoodsFlag    bool
	Color                *string `gorm:"size:50"`
	StandardCost         float64
	ListPrice            float64
	Size                 *string `gorm:"size:10"`
	ProductLine          *string `gorm:"size:10"`
	Class                *string `gorm:"size:10"`
	Style                *string `gorm:"size:10"`
	ProductSubcategoryID *int
	ProductModelID       *int
}

func (Product) TableName() string { return "products" }
