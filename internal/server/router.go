package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/docuflow/invoice-extractor/internal/cache"
	"github.com/docuflow/invoice-extractor/internal/extract"
	"github.com/docuflow/invoice-extractor/internal/handlers"
	"github.com/docuflow/invoice-extractor/internal/httpx"
	"github.com/docuflow/invoice-extractor/internal/services"
)

// Deps carries everything the router wires together; each request-scoped
// collaborator is injected rather than reached through package state.
type Deps struct {
	DB        *gorm.DB
	Orders    *services.OrderService
	Extractor extract.Extractor
	Cache     *cache.Cache
	UploadDir string
	MaxUpload int64
	Log       zerolog.Logger
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := d.DB.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ih := handlers.NewInvoiceHandler(d.Orders, d.Extractor, d.Cache, d.UploadDir, d.MaxUpload)
	mux.HandleFunc("POST /api/invoices/upload", ih.Upload)
	mux.HandleFunc("POST /api/invoices/save", ih.Save)
	mux.HandleFunc("GET /api/invoices/history", ih.History)
	mux.HandleFunc("GET /api/invoices/{id}/details", ih.Details)
	mux.HandleFunc("DELETE /api/invoices/{id}", ih.Delete)

	dh := handlers.NewDataHandler(d.DB, d.Orders, d.Cache)
	mux.HandleFunc("GET /api/data/stats", dh.Stats)
	mux.HandleFunc("GET /api/data/products", dh.Products)
	mux.HandleFunc("GET /api/data/customers", dh.Customers)
	mux.HandleFunc("GET /api/data/territories", dh.Territories)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		httpx.OK(w, "Invoice Extractor API is running!", map[string]any{
			"version": "1.0.0",
			"endpoints": map[string]string{
				"invoices": "/api/invoices",
				"data":     "/api/data",
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	return withRecover(withLogging(mux, d.Log), d.Log)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Any("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
