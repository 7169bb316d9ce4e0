package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/internal/db"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/payments"
	"github.com/diewo77/cpq-app/internal/services"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	for _, m := range db.Models() {
		if err := conn.AutoMigrate(m); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return conn
}

func quoteMux(conn *gorm.DB) (*http.ServeMux, *QuoteHandler) {
	svc := services.NewQuoteService(conn, payments.NewMirrorStore(conn))
	qh := NewQuoteHandler(conn, svc)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /quotes/{code}", qh.Show)
	mux.HandleFunc("POST /quotes/{code}/pay", qh.Pay)
	mux.HandleFunc("POST /quotes/{code}/items", qh.AddItem)
	mux.HandleFunc("DELETE /quotes/{code}/items/{id}", qh.RemoveItem)
	return mux, qh
}

func seedGroupedQuote(t *testing.T, conn *gorm.DB) *models.Quote {
	t.Helper()
	org := models.Organization{Name: "Acme"}
	if err := conn.Create(&org).Error; err != nil {
		t.Fatal(err)
	}
	g := models.GroupQuote{OrganizationID: org.ID, LineItems: []models.GroupQuoteLineItem{
		{LineItem: models.LineItem{Name: "Seat", UnitCost: decimal.RequireFromString("25.00"), Quantity: 4}},
	}}
	g.Notes = "group terms"
	if err := conn.Create(&g).Error; err != nil {
		t.Fatal(err)
	}
	cust := models.Customer{Name: "Member", OrganizationID: &org.ID}
	if err := conn.Create(&cust).Error; err != nil {
		t.Fatal(err)
	}
	q := models.Quote{CustomerID: cust.ID, GroupQuoteID: &g.ID}
	if err := conn.Create(&q).Error; err != nil {
		t.Fatal(err)
	}
	return &q
}

func getJSON(t *testing.T, mux *http.ServeMux, path string) map[string]any {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: %d (%s)", path, w.Code, w.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestShowResolvesGroupQuoteDelegation(t *testing.T) {
	conn := testDB(t)
	mux, _ := quoteMux(conn)
	q := seedGroupedQuote(t, conn)

	out := getJSON(t, mux, "/quotes/"+q.EncodedID())
	if out["notes"] != "group terms" {
		t.Fatalf("notes = %v", out["notes"])
	}
	if out["total"] != "100.00" {
		t.Fatalf("total = %v", out["total"])
	}
	items, _ := out["line_items"].([]any)
	if len(items) != 1 {
		t.Fatalf("line_items = %v", out["line_items"])
	}
}

func TestAddItemEndsDelegationOverHTTP(t *testing.T) {
	conn := testDB(t)
	mux, _ := quoteMux(conn)
	q := seedGroupedQuote(t, conn)
	code := q.EncodedID()

	body := `{"name":"Custom","unit_cost":"5.00","quantity":1}`
	r := httptest.NewRequest(http.MethodPost, "/quotes/"+code+"/items", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("add item: %d (%s)", w.Code, w.Body.String())
	}
	var added struct {
		ID    uint   `json:"id"`
		Total string `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &added); err != nil {
		t.Fatal(err)
	}
	if added.Total != "5.00" {
		t.Fatalf("total after own item = %s", added.Total)
	}

	// Removing the only own item leaves the quote empty; delegation is over.
	r = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/quotes/%s/items/%d", code, added.ID), nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("remove item: %d (%s)", w.Code, w.Body.String())
	}
	out := getJSON(t, mux, "/quotes/"+code)
	if out["total"] != "0.00" {
		t.Fatalf("total after removal = %v, delegation must not resume", out["total"])
	}
}

func TestPayValidatesCustomerRef(t *testing.T) {
	conn := testDB(t)
	mux, _ := quoteMux(conn)
	q := seedGroupedQuote(t, conn)

	r := httptest.NewRequest(http.MethodPost, "/quotes/"+q.EncodedID()+"/pay", bytes.NewBufferString(`{"customer_ref":""}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ref, got %d", w.Code)
	}
}

func TestPaymentStatusReflectsCharges(t *testing.T) {
	conn := testDB(t)
	mux, _ := quoteMux(conn)
	q := seedGroupedQuote(t, conn)
	code := q.EncodedID()

	r := httptest.NewRequest(http.MethodPost, "/quotes/"+code+"/pay", bytes.NewBufferString(`{"customer_ref":"cus_42"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("pay: %d (%s)", w.Code, w.Body.String())
	}

	// Half the 100.00 total lands as successful charges.
	charge := payments.Charge{CustomerRef: "cus_42", Amount: 5000, Status: payments.ChargeSucceeded}
	if err := conn.Create(&charge).Error; err != nil {
		t.Fatal(err)
	}
	out := getJSON(t, mux, "/quotes/"+code)
	if out["payment_status"] != models.PaymentStatusPartiallyPaid {
		t.Fatalf("payment_status = %v", out["payment_status"])
	}

	charge = payments.Charge{CustomerRef: "cus_42", Amount: 5000, Status: payments.ChargeSucceeded}
	if err := conn.Create(&charge).Error; err != nil {
		t.Fatal(err)
	}
	out = getJSON(t, mux, "/quotes/"+code)
	if out["payment_status"] != models.PaymentStatusPaidInFull {
		t.Fatalf("payment_status = %v", out["payment_status"])
	}
}

func TestShowUnknownCode(t *testing.T) {
	conn := testDB(t)
	mux, _ := quoteMux(conn)
	r := httptest.NewRequest(http.MethodGet, "/quotes/zzzzzzzz", nil)
	r.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound && w.Code != http.StatusBadRequest {
		t.Fatalf("expected 404 or 400 for unknown code, got %d", w.Code)
	}
}
