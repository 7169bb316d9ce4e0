package models

import "github.com/shopspring/decimal"

// LineItem is a named, priced, quantified charge. It is embedded in the
// per-document line item rows below; each row belongs to exactly one parent
// document and is destroyed with it.
type LineItem struct {
	Name        string          `gorm:"size:64;not null"`
	Description string          `gorm:"size:256"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity    uint            `gorm:"not null;default:1"`
}

// Amount returns unit cost times quantity, exact under decimal arithmetic.
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitCost.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// SumAmounts totals a slice of line items; zero for an empty slice.
func SumAmounts(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount())
	}
	return total
}

type QuoteLineItem struct {
	ID       uint `gorm:"primaryKey"`
	QuoteID  uint `gorm:"not null;index"`
	LineItem `gorm:"embedded"`
}

type GroupQuoteLineItem struct {
	ID           uint `gorm:"primaryKey"`
	GroupQuoteID uint `gorm:"not null;index"`
	LineItem     `gorm:"embedded"`
}

type InvoiceLineItem struct {
	ID        uint `gorm:"primaryKey"`
	InvoiceID uint `gorm:"not null;index"`
	LineItem  `gorm:"embedded"`
}
