package condition

import (
	"time"

	"github.com/shopspring/decimal"
)

// Context is the read-only set of facts a condition is evaluated against.
// Pointer fields are optional; nil means the fact is unknown.
type Context struct {
	Amount      *decimal.Decimal
	TotalAmount *decimal.Decimal

	PaymentMethod string
	VehicleType   string
	Seats         *int

	SupplierTaxCode *string

	InvoiceDate *time.Time
	// CurrentDate anchors age predicates; the evaluation clock is used when nil.
	CurrentDate *time.Time

	HasLaborContract *bool

	AmountPerPerson    *decimal.Decimal
	TotalEntertainment *decimal.Decimal
	TotalExpenses      *decimal.Decimal

	DepreciationExceedsTT45 *bool

	Category string
}

// EffectiveAmount returns amount, falling back to total_amount, then zero.
func (c Context) EffectiveAmount() decimal.Decimal {
	if c.Amount != nil {
		return *c.Amount
	}
	if c.TotalAmount != nil {
		return *c.TotalAmount
	}
	return decimal.Zero
}
