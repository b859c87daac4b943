package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/docuflow/invoice-extractor/internal/cache"
	"github.com/docuflow/invoice-extractor/internal/extract"
	"github.com/docuflow/invoice-extractor/internal/httpx"
	"github.com/docuflow/invoice-extractor/internal/services"
)

// InvoiceHandler exposes the upload → extract → save pipeline plus the order
// read/delete endpoints.
type InvoiceHandler struct {
	Svc       *services.OrderService
	Extractor extract.Extractor
	Cache     *cache.Cache
	UploadDir string
	MaxUpload int64
}

func NewInvoiceHandler(svc *services.OrderService, ex extract.Extractor, c *cache.Cache, uploadDir string, maxUpload int64) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc, Extractor: ex, Cache: c, UploadDir: uploadDir, MaxUpload: maxUpload}
}

var allowedExtensions = map[string]bool{".pdf": true, ".png": true, ".jpg": true, ".jpeg": true}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Upload: POST /api/invoices/upload — stores the document and runs extraction.
func (h *InvoiceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, fh, err := r.FormFile("invoice")
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	original := filepath.Base(fh.Filename)
	if original == "" || original == "." {
		httpx.Error(w, http.StatusBadRequest, "No file selected")
		return
	}
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExtensions[ext] {
		httpx.Error(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	safe := unsafeFilenameChars.ReplaceAllString(original, "_")
	stored := uuid.New().String() + "_" + safe
	dst, err := os.Create(filepath.Join(h.UploadDir, stored))
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Failed to store file")
		return
	}
	defer dst.Close()
	size, err := io.Copy(dst, file)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	extracted, err := h.Extractor.Extract(r.Context(), stored)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "Extraction failed")
		return
	}
	httpx.OK(w, "Invoice processed successfully", map[string]any{
		"fileInfo": map[string]any{
			"originalName": original,
			"filename":     stored,
			"size":         size,
		},
		"extractedData": extracted,
	})
}

// Save: POST /api/invoices/save — the order assembler boundary.
func (h *InvoiceHandler) Save(w http.ResponseWriter, r *http.Request) {
	var inv extract.Invoice
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	result, err := h.Svc.SaveInvoice(r.Context(), inv)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context())
	httpx.Created(w, "Invoice data saved successfully", result)
}

// History: GET /api/invoices/history?page=&limit=
func (h *InvoiceHandler) History(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	orders, err := h.Svc.History(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.OK(w, "", map[string]any{
		"orders": orders,
		"pagination": map[string]any{
			"page":    page,
			"limit":   limit,
			"hasMore": len(orders) == limit,
		},
	})
}

// Details: GET /api/invoices/{id}/details
func (h *InvoiceHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	lines, err := h.Svc.Details(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.OK(w, "", map[string]any{"orderId": id, "details": lines})
}

// Delete: DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context())
	httpx.OK(w, "Order deleted successfully", nil)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses; no
// service error ever escapes as an unhandled fault.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *services.ValidationError
	var nf *services.NotFoundError
	switch {
	case errors.As(err, &ve):
		httpx.Error(w, http.StatusBadRequest, ve.Message)
	case errors.As(err, &nf):
		httpx.Error(w, http.StatusNotFound, nf.Error())
	default:
		httpx.Error(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
