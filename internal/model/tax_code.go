package model

import (
	"time"
)

// Lookup source enum constants
const (
	SourceLive   = "LIVE"
	SourceCache  = "CACHE"
	SourceManual = "MANUAL"
)

// TaxCodeRecord is a supplier's registration as resolved from the business
// registry or entered manually by a reviewer.
type TaxCodeRecord struct {
	TaxCode   string    `gorm:"type:varchar(20);primaryKey" json:"tax_code"` // Normalized, digits only
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	ShortName string    `gorm:"type:varchar(255)" json:"short_name"`
	Address   string    `gorm:"type:text" json:"address"`
	Source    string    `gorm:"type:varchar(10);not null" json:"source"` // LIVE or MANUAL
	FetchedAt time.Time `json:"fetched_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
