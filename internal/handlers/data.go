package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/docuflow/invoice-extractor/internal/cache"
	"github.com/docuflow/invoice-extractor/internal/httpx"
	"github.com/docuflow/invoice-extractor/internal/models"
	"github.com/docuflow/invoice-extractor/internal/services"
)

// DataHandler serves the read-only catalog endpoints. These are listing
// boilerplate, so they query the DB directly rather than going through a
// service.
type DataHandler struct {
	DB    *gorm.DB
	Svc   *services.OrderService
	Cache *cache.Cache
}

func NewDataHandler(db *gorm.DB, svc *services.OrderService, c *cache.Cache) *DataHandler {
	return &DataHandler{DB: db, Svc: svc, Cache: c}
}

// Stats: GET /api/data/stats
func (h *DataHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var st services.Stats
	if h.Cache.Get(r.Context(), cache.StatsKey, &st) {
		httpx.OK(w, "", st)
		return
	}
	st, err := h.Svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.Cache.Set(r.Context(), cache.StatsKey, st)
	httpx.OK(w, "", st)
}

var likeSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

type productRow struct {
	ProductID     int     `json:"ProductID"`
	Name          string  `json:"Name"`
	ProductNumber string  `json:"ProductNumber"`
	ListPrice     float64 `json:"ListPrice"`
	Color         *string `json:"Color"`
}

// Products: GET /api/data/products?page=&limit=&search=
func (h *DataHandler) Products(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	cacheable := page == 1 && limit == 50 && search == ""
	var rows []productRow
	if cacheable && h.Cache.Get(r.Context(), cache.ProductsP1Key, &rows) {
		h.writeProductPage(w, rows, page, limit, search)
		return
	}

	dbq := h.DB.WithContext(r.Context()).Model(&models.Product{})
	if search != "" {
		like := "%" + strings.ToLower(likeSanitizer.ReplaceAllString(search, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(product_number) LIKE ?", like, like)
	}
	if err := dbq.Order("product_id").Limit(limit).Offset((page - 1) * limit).Scan(&rows).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	if cacheable {
		h.Cache.Set(r.Context(), cache.ProductsP1Key, rows)
	}
	h.writeProductPage(w, rows, page, limit, search)
}

func (h *DataHandler) writeProductPage(w http.ResponseWriter, rows []productRow, page, limit int, search string) {
	if rows == nil {
		rows = []productRow{}
	}
	httpx.OK(w, "", map[string]any{
		"products": rows,
		"pagination": map[string]any{
			"page":    page,
			"limit":   limit,
			"search":  search,
			"hasMore": len(rows) == limit,
		},
	})
}

type customerRow struct {
	CustomerID    int    `json:"CustomerID"`
	CustomerName  string `json:"CustomerName"`
	AccountNumber string `json:"AccountNumber"`
	TerritoryID   int    `json:"TerritoryID"`
}

// Customers: GET /api/data/customers?page=&limit=&search=
func (h *DataHandler) Customers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	dbq := h.DB.WithContext(r.Context()).Model(&models.Customer{})
	if search != "" {
		like := "%" + strings.ToLower(likeSanitizer.ReplaceAllString(search, "")) + "%"
		dbq = dbq.Where("lower(account_number) LIKE ?", like)
	}
	var customers []models.Customer
	if err := dbq.Order("customer_id").Limit(limit).Offset((page - 1) * limit).Find(&customers).Error; err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Failed to list customers")
		return
	}
	rows := make([]customerRow, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, customerRow{
			CustomerID:    c.CustomerID,
			CustomerName:  fmt.Sprintf("Customer %d", c.CustomerID),
			AccountNumber: c.AccountNumber,
			TerritoryID:   c.TerritoryID,
		})
	}
	httpx.OK(w, "", map[string]any{
		"customers": rows,
		"pagination": map[string]any{
			"page":    page,
			"limit":   limit,
			"search":  search,
			"hasMore": len(rows) == limit,
		},
	})
}

type territory struct {
	TerritoryID       int    `json:"TerritoryID"`
	Name              string `json:"Name"`
	CountryRegionCode string `json:"CountryRegionCode"`
	GroupName         string `json:"GroupName"`
}

var territories = []territory{
	{1, "Northwest", "US", "North America"},
	{2, "Northeast", "US", "North America"},
	{3, "Central", "US", "North America"},
	{4, "Southwest", "US", "North America"},
	{5, "Southeast", "US", "North America"},
	{6, "Canada", "CA", "North America"},
	{7, "France", "FR", "Europe"},
	{8, "Germany", "DE", "Europe"},
	{9, "Australia", "AU", "Pacific"},
	{10, "United Kingdom", "GB", "Europe"},
}

// Territories: GET /api/data/territories — static reference data until a
// territory table is loaded.
func (h *DataHandler) Territories(w http.ResponseWriter, _ *http.Request) {
	httpx.OK(w, "", map[string]any{"territories": territories})
}
