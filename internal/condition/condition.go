// Package condition holds the boolean expression trees attached to tax rules
// and evaluates them against the facts of a single transaction, expense line
// or employee period.
//
// A tree is persisted as JSON:
//
//	{"AND": [ ... ]}      every element must hold; an empty list holds
//	{"OR":  [ ... ]}      at least one element must hold; an empty list does not
//	{"NOT": { ... }}      negation of one sub-expression
//	{"amount_gte": 20000000, "payment_method": "CASH"}
//	                      a leaf; every named predicate must hold
//
// A missing, null or empty ({}) condition always matches.
package condition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMalformedCondition = errors.New("malformed condition")

// Condition is one of *Leaf, And, Or or Not. The nil Condition always matches.
type Condition interface {
	condition()
}

// And holds when every element holds. An empty And holds.
type And []Condition

// Or holds when at least one element holds. An empty Or does not hold.
type Or []Condition

// Not negates Expr.
type Not struct {
	Expr Condition
}

// Leaf is a set of predicates that are AND-ed together. Unset fields are ignored.
type Leaf struct {
	AmountGTE *decimal.Decimal `json:"amount_gte,omitempty"`
	AmountLTE *decimal.Decimal `json:"amount_lte,omitempty"`
	AmountGT  *decimal.Decimal `json:"amount_gt,omitempty"`
	AmountLT  *decimal.Decimal `json:"amount_lt,omitempty"`

	PaymentMethod    *string `json:"payment_method,omitempty"`
	PaymentMethodNot *string `json:"payment_method_not,omitempty"`

	VehicleType *string `json:"vehicle_type,omitempty"`
	SeatsGTE    *int    `json:"seats_gte,omitempty"`
	SeatsLTE    *int    `json:"seats_lte,omitempty"`
	SeatsGT     *int    `json:"seats_gt,omitempty"`
	SeatsLT     *int    `json:"seats_lt,omitempty"`

	SupplierTaxCode CodeMatch `json:"supplier_tax_code"`

	InvoiceAgeYearsGT  *decimal.Decimal `json:"invoice_age_years_gt,omitempty"`
	InvoiceAgeYearsGTE *decimal.Decimal `json:"invoice_age_years_gte,omitempty"`
	InvoiceAgeYearsLT  *decimal.Decimal `json:"invoice_age_years_lt,omitempty"`

	HasLaborContract *bool `json:"has_labor_contract,omitempty"`

	AmountPerPersonGT    *decimal.Decimal `json:"amount_per_person_gt,omitempty"`
	EntertainmentRatioGT *decimal.Decimal `json:"entertainment_ratio_gt,omitempty"`

	DepreciationExceedsTT45 *bool `json:"depreciation_exceeds_tt45,omitempty"`

	CategoryIn    []string `json:"category_in,omitempty"`
	CategoryNotIn []string `json:"category_not_in,omitempty"`

	DateBefore *Date `json:"date_before,omitempty"`
	DateAfter  *Date `json:"date_after,omitempty"`
}

func (*Leaf) condition() {}
func (And) condition()   {}
func (Or) condition()    {}
func (Not) condition()   {}

// CodeMatch is the supplier_tax_code predicate. JSON null asks for a missing
// code, a string asks for that exact code, and leaving the key out disables it.
type CodeMatch struct {
	Set  bool
	Code *string
}

func (m *CodeMatch) UnmarshalJSON(data []byte) error {
	m.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		m.Code = nil
		return nil
	}
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("supplier_tax_code must be a string or null: %w", err)
	}
	m.Code = &code
	return nil
}

// Date accepts "2006-01-02" or RFC 3339 timestamps.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	d.Time = t
	return nil
}

// Parse decodes a persisted condition tree. Empty input, null and {} yield
// the nil Condition. Unknown keys and mistyped values are reported as
// ErrMalformedCondition.
func Parse(raw []byte) (Condition, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCondition, err)
	}
	if len(obj) == 0 {
		return nil, nil
	}

	for key, val := range obj {
		op := strings.ToUpper(key)
		if op != "AND" && op != "OR" && op != "NOT" {
			continue
		}
		if len(obj) != 1 {
			return nil, fmt.Errorf("%w: %s cannot be combined with other keys", ErrMalformedCondition, key)
		}
		return parseCombinator(op, val)
	}

	leaf := &Leaf{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(leaf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCondition, err)
	}
	return leaf, nil
}

// MustParse is Parse for literals in tests and defaults. It panics on error.
func MustParse(raw string) Condition {
	c, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return c
}

func parseCombinator(op string, val json.RawMessage) (Condition, error) {
	if op == "NOT" {
		inner, err := Parse(val)
		if err != nil {
			return nil, err
		}
		return Not{Expr: inner}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, fmt.Errorf("%w: %s expects a list", ErrMalformedCondition, op)
	}

	children := make([]Condition, 0, len(items))
	for i, item := range items {
		child, err := Parse(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		children = append(children, child)
	}

	if op == "AND" {
		return And(children), nil
	}
	return Or(children), nil
}
