package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func groupQuoteFixture() *GroupQuote {
	g := &GroupQuote{OrganizationID: 1}
	g.Notes = "group terms"
	g.LineItems = []GroupQuoteLineItem{
		{LineItem: LineItem{Name: "Seat", UnitCost: decimal.RequireFromString("25.00"), Quantity: 4}},
	}
	return g
}

func TestQuoteDelegatesToGroupQuote(t *testing.T) {
	q := &Quote{GroupQuote: groupQuoteFixture()}
	q.Notes = "own notes ignored while delegating"

	if got := q.EffectiveNotes(); got != "group terms" {
		t.Fatalf("EffectiveNotes = %q", got)
	}
	items := q.EffectiveLineItems()
	if len(items) != 1 || items[0].Name != "Seat" {
		t.Fatalf("EffectiveLineItems = %+v", items)
	}
	if got := q.Total().String(); got != "100" {
		t.Fatalf("Total = %s, want 100", got)
	}
}

func TestQuoteOwnItemsEndDelegation(t *testing.T) {
	q := &Quote{GroupQuote: groupQuoteFixture()}
	q.Notes = "own notes"
	q.LineItems = []QuoteLineItem{
		{LineItem: LineItem{Name: "Custom", UnitCost: decimal.RequireFromString("5.50"), Quantity: 2}},
	}
	q.OwnItemsAdded = true

	if got := q.EffectiveNotes(); got != "own notes" {
		t.Fatalf("EffectiveNotes = %q", got)
	}
	if got := q.Total().String(); got != "11" {
		t.Fatalf("Total = %s, want 11", got)
	}
}

func TestQuoteDelegationNeverResumes(t *testing.T) {
	// Own items were added then all removed; the quote stays on its own
	// (now empty) item list instead of falling back to the group quote.
	q := &Quote{GroupQuote: groupQuoteFixture(), OwnItemsAdded: true}

	if items := q.EffectiveLineItems(); len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
	if !q.Total().IsZero() {
		t.Fatalf("Total = %s, want 0", q.Total())
	}
}

func TestQuoteTotalWithoutGroupOrItems(t *testing.T) {
	q := &Quote{}
	if !q.Total().IsZero() {
		t.Fatalf("Total = %s, want 0", q.Total())
	}
}

func TestPaymentStatusFor(t *testing.T) {
	total := decimal.RequireFromString("100.00")
	cases := []struct {
		paid string
		want string
	}{
		{"0", PaymentStatusNotPaid},
		{"0.01", PaymentStatusPartiallyPaid},
		{"99.99", PaymentStatusPartiallyPaid},
		{"100.00", PaymentStatusPaidInFull},
		{"150.00", PaymentStatusPaidInFull},
	}
	for _, c := range cases {
		got := PaymentStatusFor(decimal.RequireFromString(c.paid), total)
		if got != c.want {
			t.Errorf("PaymentStatusFor(%s, 100.00) = %q, want %q", c.paid, got, c.want)
		}
	}
}

func TestPaymentStatusZeroTotal(t *testing.T) {
	// An empty quote with no payments is Not Paid, not Paid in Full.
	got := PaymentStatusFor(decimal.Zero, decimal.Zero)
	if got != PaymentStatusNotPaid {
		t.Fatalf("PaymentStatusFor(0, 0) = %q", got)
	}
}

func TestPaymentStatusMemo(t *testing.T) {
	q := &Quote{}
	if _, ok := q.CachedPaymentStatus(); ok {
		t.Fatal("fresh quote should have no cached status")
	}
	q.SetPaymentStatus(PaymentStatusPartiallyPaid)
	status, ok := q.CachedPaymentStatus()
	if !ok || status != PaymentStatusPartiallyPaid {
		t.Fatalf("cached = %q, %v", status, ok)
	}
	q.InvalidatePaymentStatus()
	if _, ok := q.CachedPaymentStatus(); ok {
		t.Fatal("invalidated status should not be cached")
	}
}

func TestQuoteURLs(t *testing.T) {
	q := &Quote{ID: 42}
	code := q.EncodedID()
	if code == "42" {
		t.Fatal("encoded id must not expose the raw database id")
	}
	if got := q.URL(); got != "/quotes/"+code {
		t.Fatalf("URL = %q", got)
	}
	if got := q.PaymentURI(); got != "/quotes/"+code+"/pay" {
		t.Fatalf("PaymentURI = %q", got)
	}
	if got := q.FullURL("https://billing.example.com"); got != "https://billing.example.com/quotes/"+code {
		t.Fatalf("FullURL = %q", got)
	}
}

func TestGroupQuoteCustomerIsOrganization(t *testing.T) {
	g := &GroupQuote{Organization: Organization{Name: "Acme", Email: "billing@acme.test"}}
	party := g.Customer()
	if party.PartyName() != "Acme" || party.BillingEmail() != "billing@acme.test" {
		t.Fatalf("billing party = %q/%q", party.PartyName(), party.BillingEmail())
	}
	if party.BillingAddress() == nil {
		t.Fatal("billing address accessor should never be nil")
	}
}

func TestGroupQuoteURLs(t *testing.T) {
	g := &GroupQuote{ID: 7}
	if got := g.URL(); got != "/groupquotes/"+g.EncodedID() {
		t.Fatalf("URL = %q", got)
	}
	if got := g.AllQuotesURL(); got != g.URL()+"/all" {
		t.Fatalf("AllQuotesURL = %q", got)
	}
}
