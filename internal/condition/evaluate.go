package condition

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// secondsPerYear uses a 365.25-day year.
var secondsPerYear = decimal.NewFromInt(31_557_600)

// Evaluate reports whether c holds for ctx, measuring ages against the wall clock
// unless ctx.CurrentDate is set.
func Evaluate(c Condition, ctx Context) bool {
	return EvaluateAt(c, ctx, time.Now())
}

// EvaluateAt is Evaluate with an explicit clock.
func EvaluateAt(c Condition, ctx Context, now time.Time) bool {
	switch n := c.(type) {
	case nil:
		return true
	case *Leaf:
		if n == nil {
			return true
		}
		return n.holds(ctx, now)
	case And:
		for _, child := range n {
			if !EvaluateAt(child, ctx, now) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range n {
			if EvaluateAt(child, ctx, now) {
				return true
			}
		}
		return false
	case Not:
		return !EvaluateAt(n.Expr, ctx, now)
	default:
		return false
	}
}

func (l *Leaf) holds(ctx Context, now time.Time) bool {
	amount := ctx.EffectiveAmount()
	if l.AmountGTE != nil && amount.LessThan(*l.AmountGTE) {
		return false
	}
	if l.AmountLTE != nil && amount.GreaterThan(*l.AmountLTE) {
		return false
	}
	if l.AmountGT != nil && !amount.GreaterThan(*l.AmountGT) {
		return false
	}
	if l.AmountLT != nil && !amount.LessThan(*l.AmountLT) {
		return false
	}

	if l.PaymentMethod != nil && ctx.PaymentMethod != *l.PaymentMethod {
		return false
	}
	if l.PaymentMethodNot != nil && ctx.PaymentMethod == *l.PaymentMethodNot {
		return false
	}

	if l.VehicleType != nil && ctx.VehicleType != *l.VehicleType {
		return false
	}
	if !l.seatsHold(ctx.Seats) {
		return false
	}

	if l.SupplierTaxCode.Set {
		hasCode := ctx.SupplierTaxCode != nil && *ctx.SupplierTaxCode != ""
		if l.SupplierTaxCode.Code == nil {
			if hasCode {
				return false
			}
		} else if !hasCode || *ctx.SupplierTaxCode != *l.SupplierTaxCode.Code {
			return false
		}
	}

	if !l.invoiceAgeHolds(ctx, now) {
		return false
	}

	if l.HasLaborContract != nil && (ctx.HasLaborContract == nil || *ctx.HasLaborContract != *l.HasLaborContract) {
		return false
	}

	if l.AmountPerPersonGT != nil && (ctx.AmountPerPerson == nil || !ctx.AmountPerPerson.GreaterThan(*l.AmountPerPersonGT)) {
		return false
	}
	if l.EntertainmentRatioGT != nil {
		if ctx.TotalEntertainment == nil || ctx.TotalExpenses == nil || ctx.TotalExpenses.IsZero() {
			return false
		}
		ratio := ctx.TotalEntertainment.Div(*ctx.TotalExpenses)
		if !ratio.GreaterThan(*l.EntertainmentRatioGT) {
			return false
		}
	}

	if l.DepreciationExceedsTT45 != nil &&
		(ctx.DepreciationExceedsTT45 == nil || *ctx.DepreciationExceedsTT45 != *l.DepreciationExceedsTT45) {
		return false
	}

	if l.CategoryIn != nil && !slices.Contains(l.CategoryIn, ctx.Category) {
		return false
	}
	if l.CategoryNotIn != nil && slices.Contains(l.CategoryNotIn, ctx.Category) {
		return false
	}

	if l.DateBefore != nil && (ctx.InvoiceDate == nil || !ctx.InvoiceDate.Before(l.DateBefore.Time)) {
		return false
	}
	if l.DateAfter != nil && (ctx.InvoiceDate == nil || !ctx.InvoiceDate.After(l.DateAfter.Time)) {
		return false
	}

	return true
}

func (l *Leaf) seatsHold(seats *int) bool {
	if l.SeatsGTE == nil && l.SeatsLTE == nil && l.SeatsGT == nil && l.SeatsLT == nil {
		return true
	}
	if seats == nil {
		return false
	}
	n := *seats
	switch {
	case l.SeatsGTE != nil && n < *l.SeatsGTE:
		return false
	case l.SeatsLTE != nil && n > *l.SeatsLTE:
		return false
	case l.SeatsGT != nil && n <= *l.SeatsGT:
		return false
	case l.SeatsLT != nil && n >= *l.SeatsLT:
		return false
	}
	return true
}

func (l *Leaf) invoiceAgeHolds(ctx Context, now time.Time) bool {
	if l.InvoiceAgeYearsGT == nil && l.InvoiceAgeYearsGTE == nil && l.InvoiceAgeYearsLT == nil {
		return true
	}
	if ctx.InvoiceDate == nil {
		return false
	}
	if ctx.CurrentDate != nil {
		now = *ctx.CurrentDate
	}

	elapsed := now.Sub(*ctx.InvoiceDate)
	years := decimal.NewFromInt(int64(elapsed / time.Second)).Div(secondsPerYear)

	switch {
	case l.InvoiceAgeYearsGT != nil && !years.GreaterThan(*l.InvoiceAgeYearsGT):
		return false
	case l.InvoiceAgeYearsGTE != nil && years.LessThan(*l.InvoiceAgeYearsGTE):
		return false
	case l.InvoiceAgeYearsLT != nil && !years.LessThan(*l.InvoiceAgeYearsLT):
		return false
	}
	return true
}
