package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/cpq-app/internal/codes"
)

// InvoiceType is a closed enumeration; values outside it are a domain error.
type InvoiceType int

const (
	InvoiceTypeInvoice    InvoiceType = 1
	InvoiceTypeReceipt    InvoiceType = 2
	InvoiceTypeProForma   InvoiceType = 3
	InvoiceTypeCreditNote InvoiceType = 4
)

var ErrInvalidInvoiceType = errors.New("invalid invoice type")

var invoiceTypeLabels = map[InvoiceType]string{
	InvoiceTypeInvoice:    "Invoice",
	InvoiceTypeReceipt:    "Receipt",
	InvoiceTypeProForma:   "Pro Forma",
	InvoiceTypeCreditNote: "Credit Note",
}

// Label resolves the type code to its human-readable label.
func (t InvoiceType) Label() (string, error) {
	label, ok := invoiceTypeLabels[t]
	if !ok {
		return "", ErrInvalidInvoiceType
	}
	return label, nil
}

// PaymentTerm is the number of days until an invoice falls due.
type PaymentTerm int

const (
	PaymentTermDueOnReceipt PaymentTerm = 0
	PaymentTermNet7         PaymentTerm = 7
	PaymentTermNet15        PaymentTerm = 15
	PaymentTermNet30        PaymentTerm = 30
	PaymentTermNet45        PaymentTerm = 45
	PaymentTermNet60        PaymentTerm = 60
	PaymentTermNet90        PaymentTerm = 90
)

var ErrInvalidPaymentTerm = errors.New("invalid payment term")

var paymentTermLabels = map[PaymentTerm]string{
	PaymentTermDueOnReceipt: "Due On Receipt",
	PaymentTermNet7:         "Net 7",
	PaymentTermNet15:        "Net 15",
	PaymentTermNet30:        "Net 30",
	PaymentTermNet45:        "Net 45",
	PaymentTermNet60:        "Net 60",
	PaymentTermNet90:        "Net 90",
}

// Label resolves the payment term to its human-readable label.
func (p PaymentTerm) Label() (string, error) {
	label, ok := paymentTermLabels[p]
	if !ok {
		return "", ErrInvalidPaymentTerm
	}
	return label, nil
}

// Invoice is a billable document, standalone or generated from an executed
// quote. Invoices are marked paid by an external reconciliation process;
// there is no payment-collection logic here.
type Invoice struct {
	ID           uint `gorm:"primaryKey"`
	DocumentBase `gorm:"embedded"`
	CustomerID uint     `gorm:"not null;index"`
	Customer   Customer `gorm:"foreignKey:CustomerID"`
	// No column defaults on the enums: gorm skips zero values for columns
	// carrying a default tag, which would silently turn a deliberate
	// Due On Receipt (term 0) into the column default on insert. Defaults
	// are applied explicitly by the service and handlers instead.
	InvoiceType  InvoiceType `gorm:"not null"`
	Paid         bool        `gorm:"not null;default:false"`
	PaymentTerms PaymentTerm `gorm:"not null"`
	// QuoteID references the originating quote, when any. Deleting that quote
	// resets the reference to the configured default (NULL); it never
	// cascades into the invoice.
	QuoteID   *uint             `gorm:"index"`
	Quote     *Quote            `gorm:"foreignKey:QuoteID;constraint:OnDelete:SET NULL"`
	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// TypeLabel resolves the stored invoice type code.
func (inv *Invoice) TypeLabel() (string, error) { return inv.InvoiceType.Label() }

// PaymentTermsLabel resolves the stored payment term code.
func (inv *Invoice) PaymentTermsLabel() (string, error) { return inv.PaymentTerms.Label() }

// Total sums the invoice's line item amounts.
func (inv *Invoice) Total() decimal.Decimal {
	items := make([]LineItem, len(inv.LineItems))
	for i, it := range inv.LineItems {
		items[i] = it.LineItem
	}
	return SumAmounts(items)
}

func (inv *Invoice) EncodedID() string { return codes.Encode(inv.ID) }

func (inv *Invoice) URLName() string { return "invoices" }

func (inv *Invoice) URL() string { return DocumentURL(inv) }

func (inv *Invoice) FullURL(base string) string { return FullDocumentURL(inv, base) }
