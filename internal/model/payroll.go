package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PIT method enum constants
const (
	PITMethodProgressive = "PROGRESSIVE"
	PITMethodFlat        = "FLAT"
)

// PayrollEntry is one employee's income for a payroll period (YYYY-MM).
type PayrollEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Period        string          `gorm:"type:varchar(7);not null;index" json:"period"`
	EmployeeID    string          `gorm:"type:varchar(50);not null;index" json:"employee_id"`
	EmployeeName  string          `gorm:"type:varchar(255)" json:"employee_name"`
	GrossIncome   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"gross_income"`
	InsurancePaid decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"insurance_paid"`
	Dependents    *int            `json:"dependents"` // Null when HR has not declared dependents
	Method        string          `gorm:"type:varchar(15);not null;default:'PROGRESSIVE'" json:"method"`
	IsResident    bool            `gorm:"default:true" json:"is_resident"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
