package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/auth"
	"github.com/diewo77/cpq-app/httpx"
	"github.com/diewo77/cpq-app/internal/handlers"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/payments"
	"github.com/diewo77/cpq-app/internal/services"
	"github.com/diewo77/cpq-app/view"
)

// New constructs the root http.Handler with all routes and middlewares
// applied. Public pages (quote show/pay/pdf) stay open so encoded quote URLs
// remain shareable; management endpoints require a session.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	secured := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, werr := w.Write([]byte(`{"status":"degraded"}`)); werr != nil {
				_ = werr
			}
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	quoteSvc := services.NewQuoteService(db, payments.NewMirrorStore(db))
	invoiceSvc := services.NewInvoiceService(db)

	// Quote endpoints
	qh := handlers.NewQuoteHandler(db, quoteSvc)
	mux.Handle("GET /quotes", secured(qh.List))
	mux.Handle("POST /quotes", secured(qh.Create))
	mux.HandleFunc("GET /quotes/{code}", qh.Show)
	mux.Handle("DELETE /quotes/{code}", secured(qh.Delete))
	mux.HandleFunc("GET /quotes/{code}/pay", qh.PayPage)
	mux.HandleFunc("POST /quotes/{code}/pay", qh.Pay)
	mux.HandleFunc("GET /quotes/{code}/pdf", qh.PDF)
	mux.Handle("POST /quotes/{code}/items", secured(qh.AddItem))
	mux.Handle("DELETE /quotes/{code}/items/{id}", secured(qh.RemoveItem))

	// Group quote endpoints
	gh := handlers.NewGroupQuoteHandler(db)
	mux.Handle("GET /groupquotes", secured(gh.List))
	mux.Handle("POST /groupquotes", secured(gh.Create))
	mux.HandleFunc("GET /groupquotes/{code}", gh.Show)
	mux.HandleFunc("GET /groupquotes/{code}/all", gh.AllQuotes)

	// Invoice endpoints
	ih := handlers.NewInvoiceHandler(db, invoiceSvc, quoteSvc)
	mux.Handle("GET /invoices", secured(ih.List))
	mux.Handle("POST /invoices", secured(ih.Create))
	mux.HandleFunc("GET /invoices/{code}", ih.Show)
	mux.HandleFunc("GET /invoices/{code}/pdf", ih.PDF)
	mux.Handle("POST /invoices/{code}/paid", secured(ih.MarkPaid))
	mux.Handle("POST /quotes/{code}/invoice", secured(ih.FromQuote))

	// Deploy hook: publishes the static asset version rendered into pages.
	mux.Handle("POST /assets/version", secured(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 256))
		v := strings.TrimSpace(string(body))
		if err != nil || v == "" {
			httpx.JSONError(w, http.StatusBadRequest, "missing_version", nil)
			return
		}
		view.SetAssetVersion(v)
		httpx.JSON(w, http.StatusOK, map[string]string{"asset_version": v})
	}))

	// Preference cookies are handled once, by the application wrapper around
	// this router; wrapping again here would emit duplicate Set-Cookie headers.
	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
