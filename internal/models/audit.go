package models

import "time"

// Audit logging
type AuditLog struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   // who performed the action, when known
	EntityType string // "Quote", "Invoice", "GroupQuote"
	EntityID   uint
	Action     string // "create", "payment_recorded", "delete", "mark_paid"
	OldValue   string
	NewValue   string
	CreatedAt  time.Time
}
