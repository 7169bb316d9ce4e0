package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cpq-app/internal/codes"
)

// GroupQuote is a shared template of notes and line items referenced by the
// quotes of an organization's members. Group quotes are never paid directly.
type GroupQuote struct {
	ID             uint `gorm:"primaryKey"`
	DocumentBase   `gorm:"embedded"`
	OrganizationID uint                 `gorm:"not null;index"`
	Organization   Organization         `gorm:"foreignKey:OrganizationID"`
	LineItems      []GroupQuoteLineItem `gorm:"foreignKey:GroupQuoteID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
}

// LineItemValues returns the embedded line items by value.
func (g *GroupQuote) LineItemValues() []LineItem {
	items := make([]LineItem, len(g.LineItems))
	for i, it := range g.LineItems {
		items[i] = it.LineItem
	}
	return items
}

// Total sums the group quote's line item amounts.
func (g *GroupQuote) Total() decimal.Decimal {
	return SumAmounts(g.LineItemValues())
}

// Customer returns the owning organization as the billing party, so group
// quotes expose the same billing-address capability a quote's customer does.
func (g *GroupQuote) Customer() BillingParty { return &g.Organization }

func (g *GroupQuote) EncodedID() string { return codes.Encode(g.ID) }

func (g *GroupQuote) URLName() string { return "groupquotes" }

func (g *GroupQuote) URL() string { return DocumentURL(g) }

func (g *GroupQuote) FullURL(base string) string { return FullDocumentURL(g, base) }

// AllQuotesURL links to the listing of every member quote in the group.
func (g *GroupQuote) AllQuotesURL() string { return g.URL() + "/all" }
