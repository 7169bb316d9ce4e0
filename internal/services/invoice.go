package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/internal/models"
)

var ErrQuoteHasNoItems = errors.New("quote has no line items")

var (
	defaultInvoiceType = models.InvoiceTypeInvoice
	defaultPaymentTerm = models.PaymentTermNet30
)

// SetInvoiceDefaults configures the type and term applied when a caller does
// not pick one. Set once at bootstrap from config; invalid codes are ignored
// and the built-in defaults kept.
func SetInvoiceDefaults(t models.InvoiceType, p models.PaymentTerm) {
	if _, err := t.Label(); err == nil {
		defaultInvoiceType = t
	}
	if _, err := p.Label(); err == nil {
		defaultPaymentTerm = p
	}
}

// InvoiceService encapsulates invoice-related business logic.
type InvoiceService struct {
	DB *gorm.DB
	// Defaults applied when a caller does not pick a type or term.
	DefaultType models.InvoiceType
	DefaultTerm models.PaymentTerm
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{DB: db, DefaultType: defaultInvoiceType, DefaultTerm: defaultPaymentTerm}
}

// GenerateFromQuote creates an invoice for an executed quote, copying the
// quote's effective line items (so group-quote delegation is resolved at
// generation time) and linking back to the quote.
func (s *InvoiceService) GenerateFromQuote(ctx context.Context, q *models.Quote, invoiceType models.InvoiceType, terms models.PaymentTerm) (*models.Invoice, error) {
	if invoiceType == 0 {
		invoiceType = s.DefaultType
	}
	if _, err := invoiceType.Label(); err != nil {
		return nil, err
	}
	if _, err := terms.Label(); err != nil {
		return nil, err
	}
	items := q.EffectiveLineItems()
	if len(items) == 0 {
		return nil, ErrQuoteHasNoItems
	}
	inv := models.Invoice{
		DocumentBase: models.DocumentBase{Date: time.Now(), Notes: q.EffectiveNotes()},
		CustomerID:   q.CustomerID,
		InvoiceType:  invoiceType,
		PaymentTerms: terms,
		QuoteID:      &q.ID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		rows := make([]models.InvoiceLineItem, len(items))
		for i, it := range items {
			rows[i] = models.InvoiceLineItem{InvoiceID: inv.ID, LineItem: it}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		inv.LineItems = rows
		audit := models.AuditLog{EntityType: "Invoice", EntityID: inv.ID, Action: "create", NewValue: "from_quote"}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkPaid flips the paid flag. Called by the external reconciliation hook;
// there is no payment-collection logic for invoices.
func (s *InvoiceService) MarkPaid(ctx context.Context, invoiceID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Update("paid", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		audit := models.AuditLog{EntityType: "Invoice", EntityID: invoiceID, Action: "mark_paid"}
		return tx.Create(&audit).Error
	})
}
