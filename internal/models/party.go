package models

import "time"

// BillingParty is the shared capability of anything a document can be
// billed to: a customer, or an organization standing in for one.
type BillingParty interface {
	PartyName() string
	BillingEmail() string
	BillingAddress() *Address
}

// Customer is the party a quote or invoice is addressed to.
type Customer struct {
	ID             uint    `gorm:"primaryKey"`
	Name           string  `gorm:"not null;index"`
	Email          string  `gorm:"index"`
	AddressID      uint    // billing address
	Address        Address `gorm:"foreignKey:AddressID"`
	OrganizationID *uint   `gorm:"index"`
	Organization   *Organization
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Customer) PartyName() string { return c.Name }

func (c *Customer) BillingEmail() string { return c.Email }

func (c *Customer) BillingAddress() *Address { return &c.Address }

// Organization groups customers and owns group quotes.
type Organization struct {
	ID        uint    `gorm:"primaryKey"`
	Name      string  `gorm:"not null;uniqueIndex"`
	Email     string  `gorm:"index"`
	AddressID uint    // billing address
	Address   Address `gorm:"foreignKey:AddressID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Organization) PartyName() string { return o.Name }

func (o *Organization) BillingEmail() string { return o.Email }

func (o *Organization) BillingAddress() *Address { return &o.Address }
