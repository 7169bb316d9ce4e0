package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/httpx"
	"github.com/diewo77/cpq-app/internal/middleware"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/pdf"
	"github.com/diewo77/cpq-app/internal/services"
	"github.com/diewo77/cpq-app/validation"
	"github.com/diewo77/cpq-app/view"
)

// QuoteHandler serves the quote pages and API using the dual-format pattern.
type QuoteHandler struct {
	DB  *gorm.DB
	Svc *services.QuoteService
}

func NewQuoteHandler(db *gorm.DB, svc *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{DB: db, Svc: svc}
}

type lineItemReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UnitCost    string `json:"unit_cost"`
	Quantity    uint   `json:"quantity"`
}

func (ir lineItemReq) toModel(v validation.Violations) models.LineItem {
	validation.Required("name", ir.Name, v)
	cost, err := decimal.NewFromString(ir.UnitCost)
	if err != nil || cost.IsNegative() {
		v["unit_cost"] = "must_be_positive"
	}
	qty := ir.Quantity
	if qty == 0 {
		qty = 1
	}
	return models.LineItem{Name: ir.Name, Description: ir.Description, UnitCost: cost, Quantity: qty}
}

// quotePayload is the JSON shape for a single quote, resolving delegation
// and payment status.
func (h *QuoteHandler) quotePayload(r *http.Request, q *models.Quote) map[string]any {
	status, err := h.Svc.PaymentStatus(r.Context(), q)
	if err != nil {
		status = ""
	}
	items := q.EffectiveLineItems()
	rows := make([]map[string]any, len(items))
	for i, it := range items {
		rows[i] = map[string]any{
			"name":        it.Name,
			"description": it.Description,
			"unit_cost":   it.UnitCost.StringFixed(2),
			"quantity":    it.Quantity,
			"amount":      it.Amount().StringFixed(2),
		}
	}
	return map[string]any{
		"encoded_id":     q.EncodedID(),
		"url":            q.URL(),
		"full_url":       q.FullURL(""),
		"payment_uri":    q.PaymentURI(),
		"customer_id":    q.CustomerID,
		"notes":          q.EffectiveNotes(),
		"line_items":     rows,
		"total":          q.Total().StringFixed(2),
		"payment_status": status,
	}
}

// List: GET /quotes
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
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
	var total int64
	h.DB.Model(&models.Quote{}).Count(&total)
	var quotes []models.Quote
	err := h.DB.Preload("Customer").Preload("GroupQuote.LineItems").Preload("LineItems").
		Order("id desc").Limit(limit).Offset(offset).Find(&quotes).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_quotes", nil)
		return
	}
	if httpx.WantsJSON(r) {
		items := make([]map[string]any, len(quotes))
		for i := range quotes {
			items[i] = h.quotePayload(r, &quotes[i])
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
		return
	}
	_ = view.RenderPage(w, r, "quotes.html", map[string]any{"Quotes": quotes, "Total": total, "PageSize": limit})
}

// Create: POST /quotes - JSON or form
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	type createReq struct {
		CustomerID   uint          `json:"customer_id"`
		GroupQuoteID *uint         `json:"group_quote_id"`
		Notes        string        `json:"notes"`
		Items        []lineItemReq `json:"items"`
	}
	var req createReq
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else {
		if err := r.ParseForm(); err == nil {
			if v := r.Form.Get("customer_id"); v != "" {
				if id, err := strconv.Atoi(v); err == nil {
					req.CustomerID = uint(id)
				}
			}
			if v := r.Form.Get("group_quote_id"); v != "" {
				if id, err := strconv.Atoi(v); err == nil && id > 0 {
					gid := uint(id)
					req.GroupQuoteID = &gid
				}
			}
			req.Notes = r.Form.Get("notes")
			if name := r.Form.Get("item_name"); name != "" {
				qty := 1
				if qv := r.Form.Get("item_quantity"); qv != "" {
					if n, err := strconv.Atoi(qv); err == nil {
						qty = n
					}
				}
				req.Items = []lineItemReq{{
					Name:        name,
					Description: r.Form.Get("item_description"),
					UnitCost:    r.Form.Get("item_unit_cost"),
					Quantity:    uint(qty),
				}}
			}
		}
	}
	violations := validation.Violations{}
	validation.PositiveInt("customer_id", int(req.CustomerID), violations)
	items := make([]models.LineItem, len(req.Items))
	for i, ir := range req.Items {
		items[i] = ir.toModel(violations)
	}
	if !violations.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
		return
	}
	if req.GroupQuoteID != nil {
		var count int64
		h.DB.Model(&models.GroupQuote{}).Where("id = ?", *req.GroupQuoteID).Count(&count)
		if count == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_reference", map[string]string{"group_quote_id": "not_found"})
			return
		}
	}
	q := models.Quote{CustomerID: req.CustomerID, GroupQuoteID: req.GroupQuoteID, OwnItemsAdded: len(items) > 0}
	q.Notes = req.Notes
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&q).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.QuoteLineItem, len(items))
		for i, it := range items {
			rows[i] = models.QuoteLineItem{QuoteID: q.ID, LineItem: it}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		q.LineItems = rows
		return nil
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_quote", nil)
		return
	}
	if httpx.WantsJSON(r) || strings.Contains(ct, "application/json") {
		httpx.JSON(w, http.StatusCreated, h.quotePayload(r, &q))
		return
	}
	middleware.Flash(w, r, "quote_created")
	http.Redirect(w, r, q.URL(), http.StatusSeeOther)
}

func (h *QuoteHandler) load(w http.ResponseWriter, r *http.Request) (*models.Quote, bool) {
	q, err := h.Svc.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		} else {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		}
		return nil, false
	}
	return q, true
}

// Show: GET /quotes/{code}
func (h *QuoteHandler) Show(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, h.quotePayload(r, q))
		return
	}
	status, _ := h.Svc.PaymentStatus(r.Context(), q)
	_ = view.RenderPage(w, r, "quote.html", map[string]any{
		"Quote":         q,
		"Items":         q.EffectiveLineItems(),
		"Notes":         q.EffectiveNotes(),
		"Total":         q.Total(),
		"PaymentStatus": status,
	})
}

// PayPage: GET /quotes/{code}/pay
func (h *QuoteHandler) PayPage(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	_ = view.RenderPage(w, r, "quote_pay.html", map[string]any{
		"Quote": q,
		"Total": q.Total(),
	})
}

// Pay: POST /quotes/{code}/pay - records a payment provider customer
// reference against the quote.
func (h *QuoteHandler) Pay(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	var customerRef string
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		var req struct {
			CustomerRef string `json:"customer_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		customerRef = req.CustomerRef
	} else if err := r.ParseForm(); err == nil {
		customerRef = r.Form.Get("customer_ref")
	}
	if err := h.Svc.RecordPayment(r.Context(), q, customerRef); err != nil {
		if errors.Is(err, services.ErrEmptyPaymentRef) {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"customer_ref": "required"})
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_record_payment", nil)
		return
	}
	if httpx.WantsJSON(r) || strings.Contains(ct, "application/json") {
		status, _ := h.Svc.PaymentStatus(r.Context(), q)
		httpx.JSON(w, http.StatusOK, map[string]any{"payments": len(q.Payments), "payment_status": status})
		return
	}
	middleware.Flash(w, r, "payment_recorded")
	http.Redirect(w, r, q.URL(), http.StatusSeeOther)
}

// AddItem: POST /quotes/{code}/items - appending an own item permanently
// ends group-quote delegation for this quote.
func (h *QuoteHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	var req lineItemReq
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else if err := r.ParseForm(); err == nil {
		qty := 1
		if qv := r.Form.Get("quantity"); qv != "" {
			if n, err := strconv.Atoi(qv); err == nil {
				qty = n
			}
		}
		req = lineItemReq{
			Name:        r.Form.Get("name"),
			Description: r.Form.Get("description"),
			UnitCost:    r.Form.Get("unit_cost"),
			Quantity:    uint(qty),
		}
	}
	violations := validation.Violations{}
	item := req.toModel(violations)
	if !violations.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
		return
	}
	row, err := h.Svc.AddLineItem(r.Context(), q, item)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_add_item", nil)
		return
	}
	if httpx.WantsJSON(r) || strings.Contains(ct, "application/json") {
		httpx.JSON(w, http.StatusCreated, map[string]any{"id": row.ID, "total": q.Total().StringFixed(2)})
		return
	}
	http.Redirect(w, r, q.URL(), http.StatusSeeOther)
}

// RemoveItem: DELETE /quotes/{code}/items/{id}
func (h *QuoteHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	itemID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || itemID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.RemoveLineItem(r.Context(), q, uint(itemID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_remove_item", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"total": q.Total().StringFixed(2)})
}

// Delete: DELETE /quotes/{code} - invoices generated from this quote keep
// existing with their reference reset.
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), q.ID); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// PDF: GET /quotes/{code}/pdf
func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	status, _ := h.Svc.PaymentStatus(r.Context(), q)
	items := q.EffectiveLineItems()
	rows := make([]pdf.LineRow, len(items))
	for i, it := range items {
		rows[i] = pdf.LineRow{Name: it.Name, Description: it.Description, UnitCost: it.UnitCost, Quantity: it.Quantity, Amount: it.Amount()}
	}
	doc := pdf.Document{
		Kind:   "Quote",
		Code:   q.EncodedID(),
		Date:   q.Date.Format("2006-01-02"),
		Party:  q.Customer.PartyName(),
		Email:  q.Customer.BillingEmail(),
		Notes:  q.EffectiveNotes(),
		Rows:   rows,
		Total:  q.Total(),
		Status: status,
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"quote-"+q.EncodedID()+".pdf\"")
	if err := pdf.Render(w, doc); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
	}
}
