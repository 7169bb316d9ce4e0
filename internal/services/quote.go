package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/cpq-app/internal/codes"
	"github.com/diewo77/cpq-app/internal/models"
	"github.com/diewo77/cpq-app/internal/payments"
)

var ErrEmptyPaymentRef = errors.New("empty payment reference")

// QuoteService encapsulates quote-related business logic: payment
// recording, amount-paid aggregation and payment-status caching.
type QuoteService struct {
	DB      *gorm.DB
	Charges payments.ChargeLister
}

func NewQuoteService(db *gorm.DB, charges payments.ChargeLister) *QuoteService {
	return &QuoteService{DB: db, Charges: charges}
}

// GetByCode loads a quote by its encoded public id with every association
// the delegation and payment logic needs.
func (s *QuoteService) GetByCode(ctx context.Context, code string) (*models.Quote, error) {
	id, err := codes.Decode(code)
	if err != nil {
		return nil, err
	}
	var q models.Quote
	err = s.DB.WithContext(ctx).
		Preload("Customer").
		Preload("GroupQuote.LineItems").
		Preload("LineItems").
		Preload("Payments").
		First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// RecordPayment appends an external payment-provider customer reference to
// the quote's payment list. The append is a transactional insert, so
// concurrent appends for the same quote serialize at the database instead
// of racing on a serialized blob. References are never removed.
func (s *QuoteService) RecordPayment(ctx context.Context, q *models.Quote, customerRef string) error {
	if customerRef == "" {
		return ErrEmptyPaymentRef
	}
	p := models.QuotePayment{QuoteID: q.ID, CustomerRef: customerRef}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		audit := models.AuditLog{EntityType: "Quote", EntityID: q.ID, Action: "payment_recorded", NewValue: customerRef}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	q.Payments = append(q.Payments, p)
	q.InvalidatePaymentStatus()
	return nil
}

// PaymentRefs returns the quote's recorded payment references in append
// order.
func (s *QuoteService) PaymentRefs(ctx context.Context, quoteID uint) ([]string, error) {
	var rows []models.QuotePayment
	err := s.DB.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	refs := make([]string, len(rows))
	for i, row := range rows {
		refs[i] = row.CustomerRef
	}
	return refs, nil
}

// AllCharges lists every provider charge across the quote's recorded
// payment references.
func (s *QuoteService) AllCharges(ctx context.Context, q *models.Quote) ([]payments.Charge, error) {
	refs, err := s.PaymentRefs(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	var all []payments.Charge
	for _, ref := range refs {
		charges, err := s.Charges.ListCharges(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("list charges for %s: %w", ref, err)
		}
		all = append(all, charges...)
	}
	return all, nil
}

// AmountPaid sums (amount - amount_refunded) over all successful charges
// across all recorded payments. Not cached; every call hits the store.
func (s *QuoteService) AmountPaid(ctx context.Context, q *models.Quote) (decimal.Decimal, error) {
	charges, err := s.AllCharges(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, c := range charges {
		if c.Status != payments.ChargeSucceeded {
			continue
		}
		total = total.Add(c.Net())
	}
	return total, nil
}

// PaymentStatus returns the quote's payment status, computing it at most
// once per instance. RecordPayment and AddLineItem invalidate the memo; a
// freshly loaded quote recomputes.
func (s *QuoteService) PaymentStatus(ctx context.Context, q *models.Quote) (string, error) {
	if status, ok := q.CachedPaymentStatus(); ok {
		return status, nil
	}
	paid, err := s.AmountPaid(ctx, q)
	if err != nil {
		return "", err
	}
	status := models.PaymentStatusFor(paid, q.Total())
	q.SetPaymentStatus(status)
	return status, nil
}

// AddLineItem appends an own line item. The first append flips the
// OwnItemsAdded flag, permanently ending delegation to the group quote.
func (s *QuoteService) AddLineItem(ctx context.Context, q *models.Quote, item models.LineItem) (*models.QuoteLineItem, error) {
	row := models.QuoteLineItem{QuoteID: q.ID, LineItem: item}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if !q.OwnItemsAdded {
			if err := tx.Model(&models.Quote{}).Where("id = ?", q.ID).Update("own_items_added", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	q.OwnItemsAdded = true
	q.LineItems = append(q.LineItems, row)
	q.InvalidatePaymentStatus()
	return &row, nil
}

// RemoveLineItem deletes an own line item. Delegation does not resume even
// when the quote reverts to empty.
func (s *QuoteService) RemoveLineItem(ctx context.Context, q *models.Quote, itemID uint) error {
	res := s.DB.WithContext(ctx).Where("id = ? AND quote_id = ?", itemID, q.ID).Delete(&models.QuoteLineItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	kept := q.LineItems[:0]
	for _, it := range q.LineItems {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	q.LineItems = kept
	q.InvalidatePaymentStatus()
	return nil
}

// Delete removes a quote with its owned line items and payment records.
// Invoices generated from the quote keep existing: their quote reference is
// reset to the configured default (NULL), never cascade-deleted.
func (s *QuoteService) Delete(ctx context.Context, quoteID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Invoice{}).Where("quote_id = ?", quoteID).Update("quote_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", quoteID).Delete(&models.QuoteLineItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", quoteID).Delete(&models.QuotePayment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Quote{}, quoteID).Error; err != nil {
			return err
		}
		audit := models.AuditLog{EntityType: "Quote", EntityID: quoteID, Action: "delete"}
		return tx.Create(&audit).Error
	})
}
