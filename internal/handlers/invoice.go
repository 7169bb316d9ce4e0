package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/httpx"
	"github.com/diewo77/cpq-app/internal/codes"
	"github.com/diewo77/cpq-app/internal/middleware"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/pdf"
	"github.com/diewo77/cpq-app/internal/services"
	"github.com/diewo77/cpq-app/validation"
	"github.com/diewo77/cpq-app/view"
)

// InvoiceHandler serves invoice pages and API using the dual-format pattern.
type InvoiceHandler struct {
	DB       *gorm.DB
	Svc      *services.InvoiceService
	QuoteSvc *services.QuoteService
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService, quoteSvc *services.QuoteService) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc, QuoteSvc: quoteSvc}
}

func (h *InvoiceHandler) payload(inv *models.Invoice) (map[string]any, error) {
	typeLabel, err := inv.TypeLabel()
	if err != nil {
		return nil, err
	}
	termsLabel, err := inv.PaymentTermsLabel()
	if err != nil {
		return nil, err
	}
	p := map[string]any{
		"encoded_id":          inv.EncodedID(),
		"url":                 inv.URL(),
		"full_url":            inv.FullURL(""),
		"customer_id":         inv.CustomerID,
		"invoice_type":        int(inv.InvoiceType),
		"invoice_type_label":  typeLabel,
		"payment_terms":       int(inv.PaymentTerms),
		"payment_terms_label": termsLabel,
		"paid":                inv.Paid,
		"notes":               inv.Notes,
		"total":               inv.Total().StringFixed(2),
	}
	if inv.QuoteID != nil {
		p["quote_code"] = codes.Encode(*inv.QuoteID)
	}
	return p, nil
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	dbq := h.DB
	if v := r.URL.Query().Get("paid"); v != "" {
		if paid, err := strconv.ParseBool(v); err == nil {
			dbq = dbq.Where("paid = ?", paid)
		}
	}
	var total int64
	dbq.Model(&models.Invoice{}).Count(&total)
	var invs []models.Invoice
	err := dbq.Preload("Customer").Preload("LineItems").Order("id desc").Limit(limit).Offset(offset).Find(&invs).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	if httpx.WantsJSON(r) {
		items := make([]map[string]any, 0, len(invs))
		for i := range invs {
			p, err := h.payload(&invs[i])
			if err != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "invalid_invoice_data", nil)
				return
			}
			items = append(items, p)
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
		return
	}
	_ = view.RenderPage(w, r, "invoices.html", map[string]any{"Invoices": invs, "Total": total, "PageSize": limit})
}

var (
	allowedInvoiceTypes = []int{1, 2, 3, 4}
	allowedPaymentTerms = []int{0, 7, 15, 30, 45, 60, 90}
)

type invoiceReq struct {
	CustomerID  uint `json:"customer_id"`
	InvoiceType int  `json:"invoice_type"`
	// Pointer because 0 (Due On Receipt) is a valid term; nil means the
	// caller left it out and the configured default applies.
	PaymentTerms *int          `json:"payment_terms"`
	Notes        string        `json:"notes"`
	Items        []lineItemReq `json:"items"`
}

// terms resolves the requested payment term, falling back to def when the
// request carried none.
func (req invoiceReq) terms(def models.PaymentTerm) int {
	if req.PaymentTerms != nil {
		return *req.PaymentTerms
	}
	return int(def)
}

func decodeInvoiceReq(r *http.Request) (invoiceReq, error) {
	var req invoiceReq
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err == nil {
		if v := r.Form.Get("customer_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				req.CustomerID = uint(id)
			}
		}
		if v := r.Form.Get("invoice_type"); v != "" {
			req.InvoiceType, _ = strconv.Atoi(v)
		}
		if v := r.Form.Get("payment_terms"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				req.PaymentTerms = &n
			}
		}
		req.Notes = r.Form.Get("notes")
	}
	return req, nil
}

// Create: POST /invoices - standalone invoice, no quote link.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeInvoiceReq(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.InvoiceType == 0 {
		req.InvoiceType = int(h.Svc.DefaultType)
	}
	terms := req.terms(h.Svc.DefaultTerm)
	violations := validation.Violations{}
	validation.PositiveInt("customer_id", int(req.CustomerID), violations)
	validation.OneOfInt("invoice_type", req.InvoiceType, allowedInvoiceTypes, violations)
	validation.OneOfInt("payment_terms", terms, allowedPaymentTerms, violations)
	items := make([]models.LineItem, len(req.Items))
	for i, ir := range req.Items {
		items[i] = ir.toModel(violations)
	}
	if !violations.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
		return
	}
	inv := models.Invoice{
		CustomerID:   req.CustomerID,
		InvoiceType:  models.InvoiceType(req.InvoiceType),
		PaymentTerms: models.PaymentTerm(terms),
	}
	inv.Notes = req.Notes
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.InvoiceLineItem, len(items))
		for i, it := range items {
			rows[i] = models.InvoiceLineItem{InvoiceID: inv.ID, LineItem: it}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		inv.LineItems = rows
		return nil
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}
	ct := r.Header.Get("Content-Type")
	if httpx.WantsJSON(r) || strings.Contains(ct, "application/json") {
		p, perr := h.payload(&inv)
		if perr != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "invalid_invoice_data", nil)
			return
		}
		httpx.JSON(w, http.StatusCreated, p)
		return
	}
	middleware.Flash(w, r, "invoice_created")
	http.Redirect(w, r, inv.URL(), http.StatusSeeOther)
}

// FromQuote: POST /quotes/{code}/invoice - generates an invoice from an
// executed quote, copying the effective line items.
func (h *InvoiceHandler) FromQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.QuoteSvc.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		} else {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		}
		return
	}
	req, err := decodeInvoiceReq(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	invoiceType := models.InvoiceType(req.InvoiceType)
	terms := models.PaymentTerm(req.terms(h.Svc.DefaultTerm))
	inv, err := h.Svc.GenerateFromQuote(r.Context(), q, invoiceType, terms)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidInvoiceType):
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"invoice_type": "out_of_range"})
		case errors.Is(err, models.ErrInvalidPaymentTerm):
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"payment_terms": "out_of_range"})
		case errors.Is(err, services.ErrQuoteHasNoItems):
			httpx.JSONError(w, http.StatusBadRequest, "quote_has_no_items", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		}
		return
	}
	ct := r.Header.Get("Content-Type")
	if httpx.WantsJSON(r) || strings.Contains(ct, "application/json") {
		p, perr := h.payload(inv)
		if perr != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "invalid_invoice_data", nil)
			return
		}
		httpx.JSON(w, http.StatusCreated, p)
		return
	}
	middleware.Flash(w, r, "invoice_created")
	http.Redirect(w, r, inv.URL(), http.StatusSeeOther)
}

func (h *InvoiceHandler) load(w http.ResponseWriter, r *http.Request) (*models.Invoice, bool) {
	id, err := codes.Decode(r.PathValue("code"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var inv models.Invoice
	err = h.DB.Preload("Customer").Preload("LineItems").First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		} else {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		}
		return nil, false
	}
	return &inv, true
}

// Show: GET /invoices/{code}
func (h *InvoiceHandler) Show(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	typeLabel, err := inv.TypeLabel()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "invalid_invoice_data", nil)
		return
	}
	termsLabel, err := inv.PaymentTermsLabel()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "invalid_invoice_data", nil)
		return
	}
	if httpx.WantsJSON(r) {
		p, _ := h.payload(inv)
		httpx.JSON(w, http.StatusOK, p)
		return
	}
	_ = view.RenderPage(w, r, "invoice.html", map[string]any{
		"Invoice":    inv,
		"TypeLabel":  typeLabel,
		"TermsLabel": termsLabel,
		"Total":      inv.Total(),
	})
}

// MarkPaid: POST /invoices/{code}/paid - reconciliation hook.
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.Svc.MarkPaid(r.Context(), inv.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_mark_paid", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"paid": true})
}

// PDF: GET /invoices/{code}/pdf
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.load(w, r)
	if !ok {
		return
	}
	typeLabel, err := inv.TypeLabel()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "invalid_invoice_data", nil)
		return
	}
	rows := make([]pdf.LineRow, len(inv.LineItems))
	for i, it := range inv.LineItems {
		rows[i] = pdf.LineRow{Name: it.Name, Description: it.Description, UnitCost: it.UnitCost, Quantity: it.Quantity, Amount: it.Amount()}
	}
	status := ""
	if inv.Paid {
		status = "Paid"
	}
	doc := pdf.Document{
		Kind:   typeLabel,
		Code:   inv.EncodedID(),
		Date:   inv.Date.Format("2006-01-02"),
		Party:  inv.Customer.PartyName(),
		Email:  inv.Customer.BillingEmail(),
		Notes:  inv.Notes,
		Rows:   rows,
		Total:  inv.Total(),
		Status: status,
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+strings.ToLower(strings.ReplaceAll(typeLabel, " ", "-"))+"-"+inv.EncodedID()+".pdf\"")
	if err := pdf.Render(w, doc); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
	}
}
