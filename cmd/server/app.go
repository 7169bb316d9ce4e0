package main

import (
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/auth"
	"github.com/diewo77/cpq-app/internal/middleware"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/server"
	"github.com/diewo77/cpq-app/view"
)

func init() {
	// Inject language/theme resolvers into the shared view package so it stays
	// decoupled from the middleware package while still reflecting user
	// preferences.
	view.SetLangResolver(middleware.LangFrom)
	view.SetThemeResolver(middleware.ThemeFrom)
}

// popFlash reads and clears the flash cookie into data["Flash"].
func popFlash(w http.ResponseWriter, r *http.Request, data map[string]any) {
	c, err := r.Cookie("flash")
	if err != nil {
		return
	}
	if dec, derr := url.QueryUnescape(c.Value); derr == nil {
		data["Flash"] = dec
	} else {
		data["Flash"] = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: "flash", Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
}

// NewApp bundles landing, dashboard, static assets and the API routes.
func NewApp(dbConn *gorm.DB) http.Handler {
	rootAPI := auth.Middleware(server.New(dbConn))

	// serve static assets (CSS, JS) under /static/
	fs := http.FileServer(http.Dir("static"))
	staticHandler := http.StripPrefix("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		ext := filepath.Ext(name)
		// open file manually to compute ETag
		f, err := os.Open(filepath.Join("static", name))
		if err == nil {
			h := sha1.New()
			if _, cerr := io.Copy(h, f); cerr == nil {
				etag := fmt.Sprintf("\"%x\"", h.Sum(nil)[:8])
				w.Header().Set("ETag", etag)
				if match := r.Header.Get("If-None-Match"); match == etag {
					f.Close()
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
			f.Close()
		}
		if ext == ".css" {
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		} else if ext == ".js" {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		} else if ext == ".less" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		if os.Getenv("DEV") != "1" {
			// Long cache for versioned assets (1 year)
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		fs.ServeHTTP(w, r)
	}))

	baseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 8 && r.URL.Path[:8] == "/static/" {
			staticHandler.ServeHTTP(w, r)
			return
		}

		if r.URL.Path == "/dashboard" {
			uid, ok := auth.UserIDFromContext(r.Context())
			if !ok || uid == 0 {
				if parsed, ok2 := auth.ParseSession(r); ok2 {
					uid = parsed
				}
			}
			if uid == 0 {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			data := map[string]any{}
			popFlash(w, r, data)
			var user models.User
			if err := dbConn.First(&user, uid).Error; err == nil {
				data["User"] = user
			}
			var quoteCount, groupQuoteCount, invoiceCount, unpaidCount int64
			dbConn.Model(&models.Quote{}).Count(&quoteCount)
			dbConn.Model(&models.GroupQuote{}).Count(&groupQuoteCount)
			dbConn.Model(&models.Invoice{}).Count(&invoiceCount)
			dbConn.Model(&models.Invoice{}).Where("paid = ?", false).Count(&unpaidCount)
			data["Stats"] = map[string]any{
				"QuoteCount":      quoteCount,
				"GroupQuoteCount": groupQuoteCount,
				"InvoiceCount":    invoiceCount,
				"UnpaidInvoices":  unpaidCount,
			}
			var recentQuotes []models.Quote
			dbConn.Preload("LineItems").Preload("GroupQuote.LineItems").Order("created_at desc").Limit(5).Find(&recentQuotes)
			data["RecentQuotes"] = recentQuotes
			var recentInvoices []models.Invoice
			dbConn.Preload("LineItems").Order("created_at desc").Limit(5).Find(&recentInvoices)
			data["RecentInvoices"] = recentInvoices
			if err := view.RenderPage(w, r, "dashboard.html", data); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprintf(w, "template render error: %v", err)
			}
			return
		}

		if r.URL.Path == "/" {
			data := map[string]any{}
			popFlash(w, r, data)
			uid, ok := auth.UserIDFromContext(r.Context())
			if !ok || uid == 0 {
				if parsed, ok2 := auth.ParseSession(r); ok2 {
					uid = parsed
				}
			}
			if uid != 0 {
				var user models.User
				if err := dbConn.First(&user, uid).Error; err == nil {
					data["User"] = user
				}
			}
			if err := view.RenderPage(w, r, "index.html", data); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				if _, werr := w.Write([]byte("render error")); werr != nil {
					_ = werr
				}
			}
			return
		}

		rootAPI.ServeHTTP(w, r)
	})
	return middleware.Prefs(baseHandler)
}
