package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cpq-app/internal/codes"
)

// Payment status labels derived from amount paid vs total.
const (
	PaymentStatusNotPaid       = "Not Paid"
	PaymentStatusPartiallyPaid = "Partially Paid"
	PaymentStatusPaidInFull    = "Paid in Full"
)

// Quote is an unsigned proposal with line items and a total. When linked to
// a group quote and it never carried its own line items, notes and line
// items resolve to the group quote's.
type Quote struct {
	ID           uint `gorm:"primaryKey"`
	DocumentBase `gorm:"embedded"`
	CustomerID   uint            `gorm:"not null;index"`
	Customer     Customer        `gorm:"foreignKey:CustomerID"`
	GroupQuoteID *uint           `gorm:"index"`
	GroupQuote   *GroupQuote     `gorm:"foreignKey:GroupQuoteID"`
	LineItems    []QuoteLineItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	Payments     []QuotePayment  `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
	// OwnItemsAdded sticks once the first own line item lands; delegation to
	// the group quote never resumes afterwards, even if items are removed.
	OwnItemsAdded bool `gorm:"not null;default:false"`
	CreatedAt     time.Time

	// memoized payment status; instance-local, see PaymentStatus helpers.
	paymentStatus string
}

// usesGroupQuote reports whether notes and line items resolve to the linked
// group quote. Requires GroupQuote and LineItems to be preloaded.
func (q *Quote) usesGroupQuote() bool {
	return q.GroupQuote != nil && !q.OwnItemsAdded && len(q.LineItems) == 0
}

// EffectiveNotes resolves the delegation rule for notes.
func (q *Quote) EffectiveNotes() string {
	if q.usesGroupQuote() {
		return q.GroupQuote.Notes
	}
	return q.Notes
}

// EffectiveLineItems resolves the delegation rule for line items.
func (q *Quote) EffectiveLineItems() []LineItem {
	if q.usesGroupQuote() {
		return q.GroupQuote.LineItemValues()
	}
	items := make([]LineItem, len(q.LineItems))
	for i, it := range q.LineItems {
		items[i] = it.LineItem
	}
	return items
}

// Total sums the amounts of the effective line items.
func (q *Quote) Total() decimal.Decimal {
	return SumAmounts(q.EffectiveLineItems())
}

// PaymentStatusFor maps (amountPaid, total) to a payment status label.
// Boundary: amountPaid equal to total is Paid in Full.
func PaymentStatusFor(amountPaid, total decimal.Decimal) string {
	switch {
	case amountPaid.IsZero():
		return PaymentStatusNotPaid
	case amountPaid.LessThan(total):
		return PaymentStatusPartiallyPaid
	default:
		return PaymentStatusPaidInFull
	}
}

// CachedPaymentStatus returns the memoized status, if one was computed for
// this instance. A fresh load recomputes.
func (q *Quote) CachedPaymentStatus() (string, bool) {
	return q.paymentStatus, q.paymentStatus != ""
}

// SetPaymentStatus stores the computed status on this instance.
func (q *Quote) SetPaymentStatus(status string) { q.paymentStatus = status }

// InvalidatePaymentStatus clears the memo. Called whenever payment or
// line-item state changes.
func (q *Quote) InvalidatePaymentStatus() { q.paymentStatus = "" }

// EncodedID returns the obfuscated external-facing identifier used in
// shareable URLs.
func (q *Quote) EncodedID() string { return codes.Encode(q.ID) }

func (q *Quote) URLName() string { return "quotes" }

// URL is the canonical path to this quote's public page.
func (q *Quote) URL() string { return DocumentURL(q) }

// FullURL is the absolute link; base defaults to the configured domain.
func (q *Quote) FullURL(base string) string { return FullDocumentURL(q, base) }

// PaymentURI links to the payment-collection page for this quote.
func (q *Quote) PaymentURI() string { return q.URL() + "/pay" }
