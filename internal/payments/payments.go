// Package payments exposes the payment-provider integration the quote
// service aggregates charges from. The provider's API client itself is out
// of scope; charges are read from a local mirror table maintained by the
// external reconciliation process.
package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargePending   ChargeStatus = "pending"
	ChargeFailed    ChargeStatus = "failed"
)

// Charge mirrors one provider charge. Amounts are in cents, as delivered by
// the provider.
type Charge struct {
	ID             uint         `gorm:"primaryKey"`
	CustomerRef    string       `gorm:"size:64;not null;index"`
	Amount         int64        `gorm:"not null"`
	AmountRefunded int64        `gorm:"not null;default:0"`
	Status         ChargeStatus `gorm:"size:16;not null;default:'succeeded'"`
	CreatedAt      time.Time
}

func (Charge) TableName() string { return "provider_charges" }

// Net is the collectible value of the charge in currency units.
func (c Charge) Net() decimal.Decimal {
	return decimal.New(c.Amount-c.AmountRefunded, -2)
}

// ChargeLister lists the charges recorded against an external customer
// reference.
type ChargeLister interface {
	ListCharges(ctx context.Context, customerRef string) ([]Charge, error)
}

// MirrorStore serves charges from the local mirror table.
type MirrorStore struct {
	DB *gorm.DB
}

func NewMirrorStore(db *gorm.DB) *MirrorStore { return &MirrorStore{DB: db} }

func (s *MirrorStore) ListCharges(ctx context.Context, customerRef string) ([]Charge, error) {
	var charges []Charge
	err := s.DB.WithContext(ctx).
		Where("customer_ref = ?", customerRef).
		Order("id").
		Find(&charges).Error
	if err != nil {
		return nil, err
	}
	return charges, nil
}
