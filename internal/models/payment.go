package models

import "time"

// QuotePayment is one recorded external payment reference for a quote.
// Rows are inserted transactionally (concurrent appends serialize at the
// database) and are never removed; append order is the primary key order.
type QuotePayment struct {
	ID          uint   `gorm:"primaryKey"`
	QuoteID     uint   `gorm:"not null;index"`
	CustomerRef string `gorm:"size:64;not null"` // payment-provider customer id
	CreatedAt   time.Time
}
