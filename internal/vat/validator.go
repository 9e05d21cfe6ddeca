// Package vat decides whether the input VAT on a purchase may be deducted.
package vat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxcore/internal/condition"
	"taxcore/internal/model"
	"taxcore/internal/rules"
	"taxcore/internal/taxcode"
	"taxcore/pkg/logger"
	"taxcore/pkg/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

// Config key overridable through a VAT_CONFIG rule.
const ConfigCashThreshold = "cash_threshold"

// Config holds the built-in VAT constants.
type Config struct {
	// Purchases paid in cash at or above this amount lose their input VAT.
	CashThreshold decimal.Decimal
}

func DefaultConfig() Config {
	return Config{CashThreshold: decimal.NewFromInt(20_000_000)}
}

// Transaction carries the facts of one purchase.
type Transaction struct {
	ID              string           `json:"id"`
	InvoiceNumber   string           `json:"invoice_number"`
	InvoiceDate     time.Time        `json:"invoice_date"`
	SupplierTaxCode string           `json:"supplier_tax_code"`
	SupplierName    string           `json:"supplier_name"`
	Category        string           `json:"category"`
	PaymentMethod   string           `json:"payment_method"`
	Amount          decimal.Decimal  `json:"amount"`
	VATAmount       decimal.Decimal  `json:"vat_amount"`
	VehicleType     string           `json:"vehicle_type,omitempty"`
	Seats           *int             `json:"seats,omitempty"`
	AmountPerPerson *decimal.Decimal `json:"amount_per_person,omitempty"`
}

// FromInvoice maps a stored purchase invoice onto the validator's facts.
func FromInvoice(inv model.PurchaseInvoice) Transaction {
	return Transaction{
		ID:              inv.ID.String(),
		InvoiceNumber:   inv.InvoiceNo,
		InvoiceDate:     inv.InvoiceDate,
		SupplierTaxCode: inv.SupplierTaxCode,
		SupplierName:    inv.SupplierName,
		Category:        inv.Category,
		PaymentMethod:   inv.PaymentMethod,
		Amount:          inv.Amount,
		VATAmount:       inv.VATAmount,
		VehicleType:     inv.VehicleType,
		Seats:           inv.Seats,
	}
}

// Result is the deduction decision for one transaction.
type Result struct {
	TransactionID       string                `json:"transaction_id"`
	IsDeductible        bool                  `json:"is_deductible"`
	IsPartial           bool                  `json:"is_partial"`
	DeductibleAmount    decimal.Decimal       `json:"deductible_amount"`
	NonDeductibleAmount decimal.Decimal       `json:"non_deductible_amount"`
	Errors              []string              `json:"errors"`
	Warnings            []string              `json:"warnings"`
	AppliedRules        []rules.Match         `json:"applied_rules"`
	Supplier            *taxcode.LookupResult `json:"supplier,omitempty"`
}

// Validator layers the statutory VAT checks on top of the rule engine.
// The registry is optional; without it the supplier check is skipped.
type Validator struct {
	cfg      Config
	engine   *rules.Engine
	registry taxcode.Lookuper
	matcher  taxcode.Matcher
	logger   *zap.Logger
	clock    func() time.Time
}

func NewValidator(cfg Config, engine *rules.Engine, registry taxcode.Lookuper, matcher taxcode.Matcher, log *zap.Logger) *Validator {
	if cfg.CashThreshold.IsZero() {
		cfg.CashThreshold = DefaultConfig().CashThreshold
	}
	return &Validator{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		matcher:  matcher,
		logger:   logger.OrNop(log),
		clock:    time.Now,
	}
}

// scoped returns a copy that reads rules and registrations through per-batch caches.
func (v *Validator) scoped(engine *rules.Engine, registry taxcode.Lookuper) *Validator {
	cp := *v
	cp.engine = engine
	cp.registry = registry
	return &cp
}

// Validate runs every check independently and collects all errors and warnings.
// Only malformed input is returned as an error.
func (v *Validator) Validate(ctx context.Context, tx Transaction) (Result, error) {
	if err := checkInput(tx); err != nil {
		return Result{}, err
	}

	asOf := tx.InvoiceDate
	if asOf.IsZero() {
		asOf = v.clock()
	}

	res := Result{TransactionID: tx.ID, Errors: []string{}, Warnings: []string{}}

	// Cash payments at or above the threshold
	threshold := v.engine.RuleValue(ctx, model.RuleTypeVATConfig, ConfigCashThreshold, asOf, v.cfg.CashThreshold)
	if tx.PaymentMethod == model.PaymentCash && tx.Amount.GreaterThanOrEqual(threshold) {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"cash payment of %s VND is at or above the %s VND cash threshold; input VAT is not deductible without a bank transfer",
			money.FormatVND(tx.Amount), money.FormatVND(threshold)))
	}

	// Invoice evidence
	if strings.TrimSpace(tx.InvoiceNumber) == "" {
		res.Errors = append(res.Errors, "missing invoice number; input VAT without a valid invoice is not deductible")
	}
	if strings.TrimSpace(tx.SupplierTaxCode) == "" {
		res.Errors = append(res.Errors, "missing supplier tax code; input VAT without a valid invoice is not deductible")
	} else if v.registry != nil {
		res.Warnings = append(res.Warnings, v.checkSupplier(ctx, tx, &res)...)
	}

	// Stored VAT rules
	var partials []rules.Match
	res.AppliedRules = v.engine.Select(ctx, model.RuleTypeVAT, facts(tx), asOf)
	for _, m := range res.AppliedRules {
		switch m.Action {
		case model.ActionReject:
			res.Errors = append(res.Errors, fmt.Sprintf("rule %q: %s", m.Name, m.Reason))
		case model.ActionWarn:
			res.Warnings = append(res.Warnings, fmt.Sprintf("rule %q: %s", m.Name, m.Reason))
		case model.ActionPartial:
			partials = append(partials, m)
		}
	}

	switch {
	case len(res.Errors) > 0:
		res.DeductibleAmount = decimal.Zero
		res.NonDeductibleAmount = tx.VATAmount
	case len(partials) > 0:
		strictest, _ := rules.MostRestrictive(partials)
		fraction := clampFraction(strictest.Value)
		res.IsDeductible = true
		res.IsPartial = true
		res.DeductibleAmount = money.Dong(tx.VATAmount.Mul(fraction))
		res.NonDeductibleAmount = tx.VATAmount.Sub(res.DeductibleAmount)
	default:
		res.IsDeductible = true
		res.DeductibleAmount = tx.VATAmount
		res.NonDeductibleAmount = decimal.Zero
	}

	if !res.IsDeductible {
		v.logger.Debug("Input VAT rejected",
			zap.String("transaction_id", tx.ID),
			zap.Strings("errors", res.Errors))
	}
	return res, nil
}

// checkSupplier confirms the supplier against the registry. Problems are
// returned as warnings and never block deduction.
func (v *Validator) checkSupplier(ctx context.Context, tx Transaction, res *Result) []string {
	lookup := v.registry.Lookup(ctx, tx.SupplierTaxCode)
	res.Supplier = &lookup

	if !lookup.Success {
		return []string{fmt.Sprintf("could not verify supplier tax code %s: %s", tx.SupplierTaxCode, lookup.Reason)}
	}
	if strings.TrimSpace(tx.SupplierName) == "" {
		return nil
	}

	m := v.matcher.MatchRegistered(tx.SupplierName, lookup)
	res.Supplier.Score = &m.Score
	res.Supplier.NameMatched = &m.IsMatch
	if !m.IsMatch {
		return []string{fmt.Sprintf("supplier name %q does not match registered name %q (score %d)",
			tx.SupplierName, lookup.Name, m.Score)}
	}
	return nil
}

func checkInput(tx Transaction) error {
	switch {
	case strings.TrimSpace(tx.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidTransaction)
	case tx.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidTransaction)
	case tx.VATAmount.IsNegative():
		return fmt.Errorf("%w: vat_amount must not be negative", ErrInvalidTransaction)
	case tx.VATAmount.GreaterThan(tx.Amount):
		return fmt.Errorf("%w: vat_amount %s exceeds amount %s", ErrInvalidTransaction,
			money.FormatVND(tx.VATAmount), money.FormatVND(tx.Amount))
	}
	// A blank code is a deduction blocker reported in Errors; a malformed one is bad input.
	if strings.TrimSpace(tx.SupplierTaxCode) != "" {
		if _, err := taxcode.ValidateFormat(tx.SupplierTaxCode); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
		}
	}
	return nil
}

func facts(tx Transaction) condition.Context {
	amount := tx.Amount
	total := tx.Amount.Add(tx.VATAmount)
	code := strings.TrimSpace(tx.SupplierTaxCode)

	c := condition.Context{
		Amount:          &amount,
		TotalAmount:     &total,
		PaymentMethod:   tx.PaymentMethod,
		VehicleType:     tx.VehicleType,
		Seats:           tx.Seats,
		SupplierTaxCode: &code,
		AmountPerPerson: tx.AmountPerPerson,
		Category:        tx.Category,
	}
	if !tx.InvoiceDate.IsZero() {
		d := tx.InvoiceDate
		c.InvoiceDate = &d
	}
	return c
}

func clampFraction(f decimal.Decimal) decimal.Decimal {
	if f.IsNegative() {
		return decimal.Zero
	}
	if f.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return f
}
