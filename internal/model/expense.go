package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense category constants
const (
	CategoryEntertainment = "ENTERTAINMENT"
	CategoryDepreciation  = "DEPRECIATION"
	CategoryLabor         = "LABOR"
	CategoryVehicle       = "VEHICLE"
	CategoryAdvertising   = "ADVERTISING"
	CategoryPenalty       = "PENALTY"
	CategoryOther         = "OTHER"
)

// ExpenseLine is one booked expense considered for CIT deductibility.
type ExpenseLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ExpenseDate time.Time       `gorm:"type:date;not null;index" json:"expense_date"`
	Category    string          `gorm:"type:varchar(30);not null;index" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`

	// Facts consulted by CIT add-back rules
	HasLaborContract        *bool            `json:"has_labor_contract,omitempty"`
	Attendees               *int             `json:"attendees,omitempty"` // Entertainment headcount
	DepreciationExceedsTT45 *bool            `gorm:"column:depreciation_exceeds_tt45" json:"depreciation_exceeds_tt45,omitempty"`
	InvoiceID               *uuid.UUID       `gorm:"type:uuid;index" json:"invoice_id"` // Backing purchase invoice, if any
	AmountPerPerson         *decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount_per_person,omitempty"`

	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
