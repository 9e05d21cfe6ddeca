package service

import (
	"fmt"
	"time"

	"taxcore/internal/cit"
	"taxcore/internal/pit"
	"taxcore/internal/vat"

	"github.com/shopspring/decimal"
)

// --- Request DTOs. Dates are YYYY-MM-DD strings; amounts accept JSON numbers or decimal strings. ---

type VATTransactionRequest struct {
	ID              string           `json:"id" binding:"required"`
	InvoiceNumber   string           `json:"invoice_number"`
	InvoiceDate     string           `json:"invoice_date" binding:"required"`
	SupplierTaxCode string           `json:"supplier_tax_code"`
	SupplierName    string           `json:"supplier_name"`
	Category        string           `json:"category"`
	PaymentMethod   string           `json:"payment_method" binding:"required"`
	Amount          decimal.Decimal  `json:"amount" swaggertype:"string"`
	VATAmount       decimal.Decimal  `json:"vat_amount" swaggertype:"string"`
	VehicleType     string           `json:"vehicle_type"`
	Seats           *int             `json:"seats"`
	AmountPerPerson *decimal.Decimal `json:"amount_per_person" swaggertype:"string"`
}

func (r VATTransactionRequest) Transaction() (vat.Transaction, error) {
	day, err := parseDay("invoice_date", r.InvoiceDate)
	if err != nil {
		return vat.Transaction{}, fmt.Errorf("%w: %v", vat.ErrInvalidTransaction, err)
	}
	return vat.Transaction{
		ID:              r.ID,
		InvoiceNumber:   r.InvoiceNumber,
		InvoiceDate:     day,
		SupplierTaxCode: r.SupplierTaxCode,
		SupplierName:    r.SupplierName,
		Category:        r.Category,
		PaymentMethod:   r.PaymentMethod,
		Amount:          r.Amount,
		VATAmount:       r.VATAmount,
		VehicleType:     r.VehicleType,
		Seats:           r.Seats,
		AmountPerPerson: r.AmountPerPerson,
	}, nil
}

type CITLineRequest struct {
	ID                      string           `json:"id"`
	Date                    string           `json:"date"`
	Category                string           `json:"category"`
	Amount                  decimal.Decimal  `json:"amount" swaggertype:"string"`
	HasLaborContract        *bool            `json:"has_labor_contract"`
	DepreciationExceedsTT45 *bool            `json:"depreciation_exceeds_tt45"`
	AmountPerPerson         *decimal.Decimal `json:"amount_per_person" swaggertype:"string"`
}

type CITRequest struct {
	PeriodStart      string           `json:"period_start" binding:"required"`
	PeriodEnd        string           `json:"period_end" binding:"required"`
	AccountingProfit decimal.Decimal  `json:"accounting_profit" swaggertype:"string"`
	Lines            []CITLineRequest `json:"lines"`
}

func (r CITRequest) Input() (cit.Input, error) {
	period, err := parsePeriod(r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return cit.Input{}, fmt.Errorf("%w: %v", cit.ErrInvalidInput, err)
	}

	in := cit.Input{
		Period:           cit.Period{Start: period[0], End: period[1]},
		AccountingProfit: r.AccountingProfit,
		Lines:            make([]cit.Line, 0, len(r.Lines)),
	}
	for i, l := range r.Lines {
		// Undated lines are booked at the end of the period.
		day := period[1]
		if l.Date != "" {
			if day, err = parseDay(fmt.Sprintf("lines[%d].date", i), l.Date); err != nil {
				return cit.Input{}, fmt.Errorf("%w: %v", cit.ErrInvalidInput, err)
			}
		}
		in.Lines = append(in.Lines, cit.Line{
			ID:                      l.ID,
			Date:                    day,
			Category:                l.Category,
			Amount:                  l.Amount,
			HasLaborContract:        l.HasLaborContract,
			DepreciationExceedsTT45: l.DepreciationExceedsTT45,
			AmountPerPerson:         l.AmountPerPerson,
		})
	}
	return in, nil
}

type CITPeriodRequest struct {
	From             string          `json:"from" binding:"required"`
	To               string          `json:"to" binding:"required"`
	AccountingProfit decimal.Decimal `json:"accounting_profit" swaggertype:"string"`
}

func (r CITPeriodRequest) Range() (time.Time, time.Time, error) {
	return ParseRange(r.From, r.To)
}

// ParseRange parses an inclusive YYYY-MM-DD date range.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	period, err := parsePeriod(from, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	return period[0], period[1], nil
}

type PITRequest struct {
	EmployeeID    string          `json:"employee_id"`
	EmployeeName  string          `json:"employee_name"`
	GrossIncome   decimal.Decimal `json:"gross_income" swaggertype:"string"`
	InsurancePaid decimal.Decimal `json:"insurance_paid" swaggertype:"string"`
	Dependents    *int            `json:"dependents"`
	Method        string          `json:"method"`
	IsResident    *bool           `json:"is_resident"` // Defaults to true
	AsOf          string          `json:"as_of"`       // YYYY-MM-DD; selects deduction overrides
}

func (r PITRequest) Input() (pit.Input, error) {
	in := pit.Input{
		EmployeeID:    r.EmployeeID,
		EmployeeName:  r.EmployeeName,
		GrossIncome:   r.GrossIncome,
		InsurancePaid: r.InsurancePaid,
		Dependents:    r.Dependents,
		Method:        r.Method,
		IsResident:    r.IsResident == nil || *r.IsResident,
	}
	if r.AsOf != "" {
		day, err := parseDay("as_of", r.AsOf)
		if err != nil {
			return pit.Input{}, fmt.Errorf("%w: %v", pit.ErrInvalidInput, err)
		}
		in.AsOf = day
	}
	return in, nil
}

type PITBatchRequest struct {
	Employees []PITRequest `json:"employees" binding:"required"`
}

// Inputs converts every employee. A malformed as_of on one employee fails the
// whole request since no calculation has run yet.
func (r PITBatchRequest) Inputs() ([]pit.Input, error) {
	inputs := make([]pit.Input, 0, len(r.Employees))
	for i, e := range r.Employees {
		in, err := e.Input()
		if err != nil {
			return nil, fmt.Errorf("employees[%d]: %w", i, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func parseDay(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q (expected YYYY-MM-DD)", field, raw)
	}
	return t, nil
}

func parsePeriod(from, to string) ([2]time.Time, error) {
	start, err := parseDay("from", from)
	if err != nil {
		return [2]time.Time{}, err
	}
	end, err := parseDay("to", to)
	if err != nil {
		return [2]time.Time{}, err
	}
	if end.Before(start) {
		return [2]time.Time{}, fmt.Errorf("period end %s is before start %s", to, from)
	}
	return [2]time.Time{start, end}, nil
}
