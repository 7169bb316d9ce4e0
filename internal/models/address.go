package models

import (
	"strings"
	"time"
)

// Address model
type Address struct {
	ID         uint   `gorm:"primaryKey"`
	Line1      string `gorm:"not null"`
	Line2      string
	PostalCode string `gorm:"not null"`
	City       string `gorm:"not null"`
	Country    string `gorm:"not null"`
	Kind       string // e.g. "billing", "shipping"
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Formatted returns the multi-line postal form, skipping empty parts.
func (a Address) Formatted() string {
	var lines []string
	if a.Line1 != "" {
		lines = append(lines, a.Line1)
	}
	if a.Line2 != "" {
		lines = append(lines, a.Line2)
	}
	cityLine := strings.TrimSpace(a.PostalCode + " " + a.City)
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	return strings.Join(lines, "\n")
}
