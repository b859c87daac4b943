package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/docuflow/invoice-extractor/internal/cache"
	"github.com/docuflow/invoice-extractor/internal/extract"
	"github.com/docuflow/invoice-extractor/internal/models"
	"github.com/docuflow/invoice-extractor/internal/services"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Customer{}, &models.SalesOrderHeader{}, &models.SalesOrderDetail{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newInvoiceHandler(t *testing.T) (*InvoiceHandler, *gorm.DB) {
	t.Helper()
	db := setupHandlerTestDB(t)
	svc := services.NewOrderService(db, services.NewEntityResolver(), nil, zerolog.Nop())
	h := NewInvoiceHandler(svc, extract.Simulated{}, cache.New("", zerolog.Nop()), t.TempDir(), 10<<20)
	return h, db
}

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, body.String())
	}
	return env
}

func TestSaveEndpoint(t *testing.T) {
	h, db := newInvoiceHandler(t)

	body := `{"orderDate":"2024-01-15","totals":{"subtotal":100,"taxAmount":5,"total":105},"lineItems":[{"description":"A","quantity":2,"unitPrice":50,"lineTotal":100}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/save", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Save(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w.Body)
	if !env.Success {
		t.Fatalf("expected success envelope: %+v", env)
	}
	if env.Data["itemCount"] != float64(1) {
		t.Fatalf("expected itemCount 1, got %v", env.Data["itemCount"])
	}
	num, _ := env.Data["salesOrderNumber"].(string)
	if !strings.HasPrefix(num, "SO") {
		t.Fatalf("unexpected order number %q", num)
	}
	var headerCount int64
	db.Model(&models.SalesOrderHeader{}).Count(&headerCount)
	if headerCount != 1 {
		t.Fatalf("expected 1 header got %d", headerCount)
	}
}

func TestSaveEndpointValidationFailure(t *testing.T) {
	h, db := newInvoiceHandler(t)

	body := `{"totals":{"subtotal":100,"taxAmount":5,"total":105},"lineItems":[{"description":"A","quantity":2,"unitPrice":50,"lineTotal":100}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/save", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Save(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	env := decodeEnvelope(t, w.Body)
	if env.Success || env.Message == "" {
		t.Fatalf("expected failure envelope with message: %+v", env)
	}
	var rows int64
	db.Model(&models.SalesOrderHeader{}).Count(&rows)
	if rows != 0 {
		t.Fatalf("expected nothing written, got %d headers", rows)
	}
}

func TestSaveEndpointMalformedJSON(t *testing.T) {
	h, _ := newInvoiceHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/save", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.Save(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestDetailsAndDeleteEndpoints(t *testing.T) {
	h, _ := newInvoiceHandler(t)

	// Save through the handler so ids are realistic.
	body := `{"orderDate":"2024-01-15","totals":{"subtotal":100,"taxAmount":5,"total":105},"lineItems":[{"description":"A","quantity":2,"unitPrice":50,"lineTotal":100}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/save", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Save(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("save got %d", w.Code)
	}
	env := decodeEnvelope(t, w.Body)
	orderID := int(env.Data["salesOrderId"].(float64))

	detReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/invoices/%d/details", orderID), nil)
	detReq.SetPathValue("id", fmt.Sprint(orderID))
	detW := httptest.NewRecorder()
	h.Details(detW, detReq)
	if detW.Code != http.StatusOK {
		t.Fatalf("details got %d body=%s", detW.Code, detW.Body.String())
	}
	detEnv := decodeEnvelope(t, detW.Body)
	details, _ := detEnv.Data["details"].([]any)
	if len(details) != 1 {
		t.Fatalf("expected 1 detail got %v", detEnv.Data)
	}

	delReq := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/invoices/%d", orderID), nil)
	delReq.SetPathValue("id", fmt.Sprint(orderID))
	delW := httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("delete got %d", delW.Code)
	}

	// Details after delete -> 404
	detReq2 := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/invoices/%d/details", orderID), nil)
	detReq2.SetPathValue("id", fmt.Sprint(orderID))
	detW2 := httptest.NewRecorder()
	h.Details(detW2, detReq2)
	if detW2.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete got %d", detW2.Code)
	}
}

func TestDetailsInvalidID(t *testing.T) {
	h, _ := newInvoiceHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/abc/details", nil)
	req.SetPathValue("id", "abc")
	w := httptest.NewRecorder()
	h.Details(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestDeleteUnknownOrder(t *testing.T) {
	h, _ := newInvoiceHandler(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/invoices/999", nil)
	req.SetPathValue("id", "999")
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h, _ := newInvoiceHandler(t)

	for i := 0; i < 2; i++ {
		body := fmt.Sprintf(`{"orderDate":"2024-01-15","totals":{"subtotal":100,"taxAmount":5,"total":105},"lineItems":[{"description":"Item %d","quantity":1,"unitPrice":100,"lineTotal":100}]}`, i)
		req := httptest.NewRequest(http.MethodPost, "/api/invoices/save", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Save(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("save %d got %d", i, w.Code)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/history?page=1&limit=20", nil)
	w := httptest.NewRecorder()
	h.History(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("history got %d", w.Code)
	}
	env := decodeEnvelope(t, w.Body)
	orders, _ := env.Data["orders"].([]any)
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders got %d", len(orders))
	}
	pagination, _ := env.Data["pagination"].(map[string]any)
	if pagination["hasMore"] != false {
		t.Fatalf("expected hasMore false: %v", pagination)
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	h, _ := newInvoiceHandler(t)

	buf, contentType := multipartBody(t, "invoice", "Sales Invoice.png", []byte("fake png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.Upload(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload got %d body=%s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w.Body)
	fileInfo, _ := env.Data["fileInfo"].(map[string]any)
	stored, _ := fileInfo["filename"].(string)
	if stored == "" || !strings.HasSuffix(stored, "_Sales_Invoice.png") {
		t.Fatalf("unexpected stored name %q", stored)
	}
	if _, err := os.Stat(filepath.Join(h.UploadDir, stored)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	extracted, _ := env.Data["extractedData"].(map[string]any)
	if extracted["orderDate"] != "2014-05-01" {
		t.Fatalf("expected simulated extraction, got %v", extracted["orderDate"])
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	h, _ := newInvoiceHandler(t)

	buf, contentType := multipartBody(t, "invoice", "invoice.exe", []byte("nope"))
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.Upload(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	h, _ := newInvoiceHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("unrelated", "value")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.Upload(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}
