package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod enum constants
const (
	PaymentCash         = "CASH"
	PaymentBankTransfer = "BANK_TRANSFER"
	PaymentCard         = "CARD"
)

// PurchaseInvoice is an input VAT invoice received from a supplier.
// Amounts are in VND.
type PurchaseInvoice struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo       string          `gorm:"type:varchar(30);index" json:"invoice_no"` // Empty when the purchase has no invoice
	InvoiceDate     time.Time       `gorm:"type:date;not null;index" json:"invoice_date"`
	SupplierTaxCode string          `gorm:"type:varchar(20);index" json:"supplier_tax_code"`
	SupplierName    string          `gorm:"type:varchar(255)" json:"supplier_name"`
	Category        string          `gorm:"type:varchar(30);index" json:"category"`
	PaymentMethod   string          `gorm:"type:varchar(20);not null" json:"payment_method"` // CASH, BANK_TRANSFER, CARD
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`       // Pre-tax amount
	VATAmount       decimal.Decimal `gorm:"column:vat_amount;type:decimal(18,2);not null;default:0" json:"vat_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"` // amount + vat_amount
	VehicleType     string          `gorm:"type:varchar(30)" json:"vehicle_type,omitempty"`
	Seats           *int            `json:"seats,omitempty"`
	Description     string          `gorm:"type:text" json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
