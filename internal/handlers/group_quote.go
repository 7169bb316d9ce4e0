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
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/validation"
	"github.com/diewo77/cpq-app/view"
)

// GroupQuoteHandler serves the shared quote templates owned by organizations.
type GroupQuoteHandler struct {
	DB *gorm.DB
}

func NewGroupQuoteHandler(db *gorm.DB) *GroupQuoteHandler {
	return &GroupQuoteHandler{DB: db}
}

func (h *GroupQuoteHandler) payload(g *models.GroupQuote) map[string]any {
	items := g.LineItemValues()
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
		"encoded_id":     g.EncodedID(),
		"url":            g.URL(),
		"full_url":       g.FullURL(""),
		"all_quotes_url": g.AllQuotesURL(),
		"customer":       g.Customer().PartyName(),
		"notes":          g.Notes,
		"line_items":     rows,
		"total":          g.Total().StringFixed(2),
	}
}

// List: GET /groupquotes
func (h *GroupQuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	var groups []models.GroupQuote
	err := h.DB.Preload("Organization").Preload("LineItems").Order("id desc").Find(&groups).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_group_quotes", nil)
		return
	}
	if httpx.WantsJSON(r) {
		items := make([]map[string]any, len(groups))
		for i := range groups {
			items[i] = h.payload(&groups[i])
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
		return
	}
	_ = view.RenderPage(w, r, "groupquotes.html", map[string]any{"GroupQuotes": groups})
}

// Create: POST /groupquotes
func (h *GroupQuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	type createReq struct {
		OrganizationID uint          `json:"organization_id"`
		Notes          string        `json:"notes"`
		Items          []lineItemReq `json:"items"`
	}
	var req createReq
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else if err := r.ParseForm(); err == nil {
		if v := r.Form.Get("organization_id"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				req.OrganizationID = uint(id)
			}
		}
		req.Notes = r.Form.Get("notes")
	}
	violations := validation.Violations{}
	validation.PositiveInt("organization_id", int(req.OrganizationID), violations)
	items := make([]models.LineItem, len(req.Items))
	for i, ir := range req.Items {
		items[i] = ir.toModel(violations)
	}
	if !violations.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", violations)
		return
	}
	var orgCount int64
	h.DB.Model(&models.Organization{}).Where("id = ?", req.OrganizationID).Count(&orgCount)
	if orgCount == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_reference", map[string]string{"organization_id": "not_found"})
		return
	}
	g := models.GroupQuote{OrganizationID: req.OrganizationID}
	g.Notes = req.Notes
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.GroupQuoteLineItem, len(items))
		for i, it := range items {
			rows[i] = models.GroupQuoteLineItem{GroupQuoteID: g.ID, LineItem: it}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		g.LineItems = rows
		return nil
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_group_quote", nil)
		return
	}
	if httpx.WantsJSON(r) || strings.Contains(ct, "application/json") {
		httpx.JSON(w, http.StatusCreated, h.payload(&g))
		return
	}
	http.Redirect(w, r, g.URL(), http.StatusSeeOther)
}

func (h *GroupQuoteHandler) load(w http.ResponseWriter, r *http.Request) (*models.GroupQuote, bool) {
	id, err := codes.Decode(r.PathValue("code"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var g models.GroupQuote
	err = h.DB.Preload("Organization").Preload("LineItems").First(&g, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		} else {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_group_quote", nil)
		}
		return nil, false
	}
	return &g, true
}

// Show: GET /groupquotes/{code}
func (h *GroupQuoteHandler) Show(w http.ResponseWriter, r *http.Request) {
	g, ok := h.load(w, r)
	if !ok {
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, h.payload(g))
		return
	}
	_ = view.RenderPage(w, r, "groupquote.html", map[string]any{
		"GroupQuote": g,
		"Items":      g.LineItemValues(),
		"Total":      g.Total(),
	})
}

// AllQuotes: GET /groupquotes/{code}/all - every member quote referencing
// this group quote.
func (h *GroupQuoteHandler) AllQuotes(w http.ResponseWriter, r *http.Request) {
	g, ok := h.load(w, r)
	if !ok {
		return
	}
	var quotes []models.Quote
	err := h.DB.Preload("Customer").Preload("GroupQuote.LineItems").Preload("LineItems").
		Where("group_quote_id = ?", g.ID).Order("id").Find(&quotes).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_quotes", nil)
		return
	}
	if httpx.WantsJSON(r) {
		items := make([]map[string]any, len(quotes))
		for i := range quotes {
			q := &quotes[i]
			items[i] = map[string]any{
				"encoded_id": q.EncodedID(),
				"url":        q.URL(),
				"customer":   q.Customer.PartyName(),
				"total":      q.Total().StringFixed(2),
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"group_quote": g.EncodedID(), "items": items, "total": len(items)})
		return
	}
	_ = view.RenderPage(w, r, "groupquote_all.html", map[string]any{"GroupQuote": g, "Quotes": quotes})
}
