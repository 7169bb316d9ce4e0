package models

import "time"

// DocumentBase carries the fields shared by every CPQ document
// (quote, group quote, invoice).
type DocumentBase struct {
	Date      time.Time `gorm:"not null"`
	Notes     string    `gorm:"size:1024"`
	Timestamp time.Time `gorm:"autoUpdateTime"`
}

// Linkable is satisfied by documents that expose a public, obfuscated URL.
// Satisfying it is a compile-time contract; there is no runtime
// "not implemented" path.
type Linkable interface {
	EncodedID() string
	URLName() string
}

// DocumentURL builds the canonical path for a document's public page.
func DocumentURL(d Linkable) string {
	return "/" + d.URLName() + "/" + d.EncodedID()
}

var defaultDomain = "localhost:8080"

// SetDefaultDomain configures the domain used when FullDocumentURL is called
// without an explicit base URI. Set once at bootstrap from config.
func SetDefaultDomain(domain string) {
	if domain != "" {
		defaultDomain = domain
	}
}

// FullDocumentURL prefixes the canonical path with base, or with the
// configured default domain when base is empty.
func FullDocumentURL(d Linkable, base string) string {
	if base == "" {
		base = "http://" + defaultDomain
	}
	return base + DocumentURL(d)
}
