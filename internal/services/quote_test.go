package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/internal/db"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/payments"
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

func quoteFixture(t *testing.T, conn *gorm.DB) *models.Quote {
	t.Helper()
	cust := models.Customer{Name: "Acme"}
	if err := conn.Create(&cust).Error; err != nil {
		t.Fatal(err)
	}
	q := models.Quote{CustomerID: cust.ID}
	if err := conn.Create(&q).Error; err != nil {
		t.Fatal(err)
	}
	return &q
}

func TestRecordPaymentAppendsInOrder(t *testing.T) {
	conn := testDB(t)
	svc := NewQuoteService(conn, payments.NewMirrorStore(conn))
	q := quoteFixture(t, conn)
	ctx := context.Background()

	for _, ref := range []string{"cus_a", "cus_b", "cus_c"} {
		if err := svc.RecordPayment(ctx, q, ref); err != nil {
			t.Fatalf("RecordPayment(%s): %v", ref, err)
		}
	}
	refs, err := svc.PaymentRefs(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"cus_a", "cus_b", "cus_c"}
	if len(refs) != len(want) {
		t.Fatalf("refs = %v", refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("refs[%d] = %q, want %q", i, refs[i], want[i])
		}
	}
	if len(q.Payments) != 3 {
		t.Fatalf("in-memory payments = %d", len(q.Payments))
	}
}

func TestRecordPaymentRejectsEmptyRef(t *testing.T) {
	conn := testDB(t)
	svc := NewQuoteService(conn, payments.NewMirrorStore(conn))
	q := quoteFixture(t, conn)
	if err := svc.RecordPayment(context.Background(), q, ""); err != ErrEmptyPaymentRef {
		t.Fatalf("err = %v, want ErrEmptyPaymentRef", err)
	}
}

func TestAmountPaidSumsSuccessfulChargesNet(t *testing.T) {
	conn := testDB(t)
	svc := NewQuoteService(conn, payments.NewMirrorStore(conn))
	q := quoteFixture(t, conn)
	ctx := context.Background()

	if err := svc.RecordPayment(ctx, q, "cus_a"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordPayment(ctx, q, "cus_b"); err != nil {
		t.Fatal(err)
	}
	charges := []payments.Charge{
		{CustomerRef: "cus_a", Amount: 1999, Status: payments.ChargeSucceeded},
		{CustomerRef: "cus_a", Amount: 1999, AmountRefunded: 499, Status: payments.ChargeSucceeded},
		{CustomerRef: "cus_a", Amount: 5000, Status: payments.ChargeFailed},
		{CustomerRef: "cus_b", Amount: 100, Status: payments.ChargeSucceeded},
		{CustomerRef: "cus_b", Amount: 9999, Status: payments.ChargePending},
		{CustomerRef: "cus_other", Amount: 77777, Status: payments.ChargeSucceeded},
	}
	if err := conn.Create(&charges).Error; err != nil {
		t.Fatal(err)
	}

	paid, err := svc.AmountPaid(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	// 19.99 + (19.99 - 4.99) + 1.00; failed, pending and foreign refs excluded.
	if want := decimal.RequireFromString("35.99"); !paid.Equal(want) {
		t.Fatalf("AmountPaid = %s, want %s", paid, want)
	}
}

func TestPaymentStatusMemoizedPerInstance(t *testing.T) {
	conn := testDB(t)
	svc := NewQuoteService(conn, payments.NewMirrorStore(conn))
	q := quoteFixture(t, conn)
	ctx := context.Background()

	item := models.LineItem{Name: "Svc", UnitCost: decimal.RequireFromString("20.00"), Quantity: 1}
	if _, err := svc.AddLineItem(ctx, q, item); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordPayment(ctx, q, "cus_a"); err != nil {
		t.Fatal(err)
	}

	status, err := svc.PaymentStatus(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.PaymentStatusNotPaid {
		t.Fatalf("status = %q", status)
	}

	// New charges land after the memo was computed; the same instance keeps
	// serving the memoized value.
	charge := payments.Charge{CustomerRef: "cus_a", Amount: 2000, Status: payments.ChargeSucceeded}
	if err := conn.Create(&charge).Error; err != nil {
		t.Fatal(err)
	}
	status, err = svc.PaymentStatus(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.PaymentStatusNotPaid {
		t.Fatalf("memoized status = %q, want stale Not Paid", status)
	}

	// Explicit invalidation recomputes.
	q.InvalidatePaymentStatus()
	status, err = svc.PaymentStatus(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.PaymentStatusPaidInFull {
		t.Fatalf("recomputed status = %q", status)
	}

	// A freshly loaded instance computes its own status.
	fresh, err := svc.GetByCode(ctx, q.EncodedID())
	if err != nil {
		t.Fatal(err)
	}
	status, err = svc.PaymentStatus(ctx, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if status != models.PaymentStatusPaidInFull {
		t.Fatalf("fresh status = %q", status)
	}
}

func TestAddLineItemFlipsDelegationOnce(t *testing.T) {
	conn := testDB(t)
	svc := NewQuoteService(conn, payments.NewMirrorStore(conn))
	ctx := context.Background()

	org := models.Organization{Name: "Acme"}
	if err := conn.Create(&org).Error; err != nil {
		t.Fatal(err)
	}
	g := models.GroupQuote{OrganizationID: org.ID, LineItems: []models.GroupQuoteLineItem{
		{LineItem: models.LineItem{Name: "Seat", UnitCost: decimal.RequireFromString("25.00"), Quantity: 4}},
	}}
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

	loaded, err := svc.GetByCode(ctx, q.EncodedID())
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Total().String(); got != "100" {
		t.Fatalf("delegated total = %s", got)
	}

	item := models.LineItem{Name: "Custom", UnitCost: decimal.RequireFromString("5.00"), Quantity: 1}
	row, err := svc.AddLineItem(ctx, loaded, item)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Total().String(); got != "5" {
		t.Fatalf("total after own item = %s", got)
	}

	// Removing the only own item must not resume delegation.
	if err := svc.RemoveLineItem(ctx, loaded, row.ID); err != nil {
		t.Fatal(err)
	}
	if !loaded.Total().IsZero() {
		t.Fatalf("total after removal = %s, want 0", loaded.Total())
	}

	// The flag persisted: a reload also stays off the group quote.
	reloaded, err := svc.GetByCode(ctx, q.EncodedID())
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.OwnItemsAdded {
		t.Fatal("own_items_added flag did not persist")
	}
	if !reloaded.Total().IsZero() {
		t.Fatalf("reloaded total = %s, want 0", reloaded.Total())
	}
}

func TestDeleteQuoteResetsInvoiceReference(t *testing.T) {
	conn := testDB(t)
	svc := NewQuoteService(conn, payments.NewMirrorStore(conn))
	ctx := context.Background()
	q := quoteFixture(t, conn)

	inv := models.Invoice{CustomerID: q.CustomerID, InvoiceType: models.InvoiceTypeInvoice, PaymentTerms: models.PaymentTermNet30, QuoteID: &q.ID}
	if err := conn.Create(&inv).Error; err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordPayment(ctx, q, "cus_a"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, q.ID); err != nil {
		t.Fatal(err)
	}

	var gone int64
	conn.Model(&models.Quote{}).Where("id = ?", q.ID).Count(&gone)
	if gone != 0 {
		t.Fatal("quote still present")
	}
	var kept models.Invoice
	if err := conn.First(&kept, inv.ID).Error; err != nil {
		t.Fatalf("invoice was deleted with its quote: %v", err)
	}
	if kept.QuoteID != nil {
		t.Fatalf("invoice quote reference = %v, want reset to NULL", *kept.QuoteID)
	}
	var orphanPayments int64
	conn.Model(&models.QuotePayment{}).Where("quote_id = ?", q.ID).Count(&orphanPayments)
	if orphanPayments != 0 {
		t.Fatal("payment rows outlived their quote")
	}
}
