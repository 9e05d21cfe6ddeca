// Package cit computes corporate income tax for a period by adding
// non-deductible expenses back to accounting profit.
package cit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxcore/internal/condition"
	"taxcore/internal/model"
	"taxcore/internal/rules"
	"taxcore/pkg/logger"
	"taxcore/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidInput = errors.New("invalid input")

// Config key overridable through a CIT_CONFIG rule.
const ConfigRate = "rate"

const defaultWorkers = 8

type Config struct {
	Rate decimal.Decimal
}

func DefaultConfig() Config {
	return Config{Rate: decimal.RequireFromString("0.20")}
}

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Line is one booked expense.
type Line struct {
	ID                      string           `json:"id"`
	Date                    time.Time        `json:"date"`
	Category                string           `json:"category"`
	Amount                  decimal.Decimal  `json:"amount"`
	HasLaborContract        *bool            `json:"has_labor_contract,omitempty"`
	DepreciationExceedsTT45 *bool            `json:"depreciation_exceeds_tt45,omitempty"`
	AmountPerPerson         *decimal.Decimal `json:"amount_per_person,omitempty"`
}

// FromExpense maps a stored expense line. The per-person amount is derived
// from the attendee count when it was not recorded directly.
func FromExpense(e model.ExpenseLine) Line {
	l := Line{
		ID:                      e.ID.String(),
		Date:                    e.ExpenseDate,
		Category:                e.Category,
		Amount:                  e.Amount,
		HasLaborContract:        e.HasLaborContract,
		DepreciationExceedsTT45: e.DepreciationExceedsTT45,
		AmountPerPerson:         e.AmountPerPerson,
	}
	if l.AmountPerPerson == nil && e.Attendees != nil && *e.Attendees > 0 {
		per := e.Amount.Div(decimal.NewFromInt(int64(*e.Attendees)))
		l.AmountPerPerson = &per
	}
	return l
}

type Input struct {
	Period           Period          `json:"period"`
	AccountingProfit decimal.Decimal `json:"accounting_profit"`
	Lines            []Line          `json:"lines"`
}

// AdjustmentItem explains the treatment of one expense line. RuleID is nil
// when the line is fully deductible.
type AdjustmentItem struct {
	LineID        string          `json:"line_id"`
	Category      string          `json:"category"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	AddBackAmount decimal.Decimal `json:"add_back_amount"`
	RuleID        *uuid.UUID      `json:"rule_id"`
	RuleName      string          `json:"rule_name,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

type Failure struct {
	LineID string `json:"line_id"`
	Error  string `json:"error"`
}

type Result struct {
	Period             Period           `json:"period"`
	AccountingProfit   decimal.Decimal  `json:"accounting_profit"`
	TotalExpenses      decimal.Decimal  `json:"total_expenses"`
	TotalEntertainment decimal.Decimal  `json:"total_entertainment"`
	TotalAddBacks      decimal.Decimal  `json:"total_add_backs"`
	TaxableIncome      decimal.Decimal  `json:"taxable_income"`
	Rate               decimal.Decimal  `json:"rate"`
	CITPayable         decimal.Decimal  `json:"cit_payable"`
	Adjustments        []AdjustmentItem `json:"adjustments"`
	Failures           []Failure        `json:"failures"`
}

type Calculator struct {
	cfg     Config
	engine  *rules.Engine
	workers int
	logger  *zap.Logger
}

func NewCalculator(cfg Config, engine *rules.Engine, log *zap.Logger) *Calculator {
	if cfg.Rate.IsZero() {
		cfg.Rate = DefaultConfig().Rate
	}
	return &Calculator{cfg: cfg, engine: engine, workers: defaultWorkers, logger: logger.OrNop(log)}
}

// Calculate classifies every line against the CIT_ADDBACK rules effective at
// the end of the period. Invalid lines are reported under Failures and left
// out of every total.
func (c *Calculator) Calculate(ctx context.Context, in Input) (Result, error) {
	if in.Period.Start.IsZero() || in.Period.End.IsZero() {
		return Result{}, fmt.Errorf("%w: period start and end are required", ErrInvalidInput)
	}
	if in.Period.End.Before(in.Period.Start) {
		return Result{}, fmt.Errorf("%w: period end is before start", ErrInvalidInput)
	}

	res := Result{
		Period:           in.Period,
		AccountingProfit: in.AccountingProfit,
		Adjustments:      []AdjustmentItem{},
		Failures:         []Failure{},
	}

	valid := make([]Line, 0, len(in.Lines))
	for _, l := range in.Lines {
		if err := checkLine(l); err != nil {
			c.logger.Warn("Skipping invalid expense line", zap.String("line_id", l.ID), zap.Error(err))
			res.Failures = append(res.Failures, Failure{LineID: l.ID, Error: err.Error()})
			continue
		}
		valid = append(valid, l)
	}

	res.TotalExpenses = decimal.Zero
	res.TotalEntertainment = decimal.Zero
	for _, l := range valid {
		res.TotalExpenses = res.TotalExpenses.Add(l.Amount)
		if l.Category == model.CategoryEntertainment {
			res.TotalEntertainment = res.TotalEntertainment.Add(l.Amount)
		}
	}

	engine := c.engine
	if engine != nil {
		engine = engine.WithRepository(rules.NewCachedRepository(engine.Repository()))
	}

	adjustments := make([]AdjustmentItem, len(valid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range valid {
		g.Go(func() error {
			adjustments[i] = c.classify(gctx, engine, valid[i], res.TotalEntertainment, res.TotalExpenses, in.Period.End)
			return nil
		})
	}
	_ = g.Wait()

	res.TotalAddBacks = decimal.Zero
	for _, a := range adjustments {
		res.TotalAddBacks = res.TotalAddBacks.Add(a.AddBackAmount)
	}
	res.Adjustments = append(res.Adjustments, adjustments...)

	res.TaxableIncome = in.AccountingProfit.Add(res.TotalAddBacks)
	res.Rate = engine.RuleValue(ctx, model.RuleTypeCITConfig, ConfigRate, in.Period.End, c.cfg.Rate)
	res.CITPayable = money.Dong(money.MaxZero(res.TaxableIncome).Mul(res.Rate))

	c.logger.Info("CIT calculated",
		zap.Time("period_end", in.Period.End),
		zap.Int("lines", len(in.Lines)),
		zap.Int("failed", len(res.Failures)),
		zap.String("add_backs", res.TotalAddBacks.String()),
		zap.String("cit_payable", res.CITPayable.String()))

	return res, nil
}

func (c *Calculator) classify(ctx context.Context, engine *rules.Engine, l Line, entertainment, expenses decimal.Decimal, asOf time.Time) AdjustmentItem {
	item := AdjustmentItem{
		LineID:        l.ID,
		Category:      l.Category,
		GrossAmount:   l.Amount,
		AddBackAmount: decimal.Zero,
	}

	amount := l.Amount
	facts := condition.Context{
		Amount:                  &amount,
		Category:                l.Category,
		HasLaborContract:        l.HasLaborContract,
		DepreciationExceedsTT45: l.DepreciationExceedsTT45,
		AmountPerPerson:         l.AmountPerPerson,
		TotalEntertainment:      &entertainment,
		TotalExpenses:           &expenses,
	}
	if !l.Date.IsZero() {
		day := l.Date
		facts.InvoiceDate = &day
	}

	m, ok := rules.MostRestrictive(engine.Select(ctx, model.RuleTypeCITAddBack, facts, asOf))
	if !ok {
		return item
	}

	switch m.Action {
	case model.ActionReject:
		item.AddBackAmount = l.Amount
	case model.ActionPartial:
		item.AddBackAmount = money.MaxZero(l.Amount.Sub(m.Value))
	default:
		return item
	}

	id := m.RuleID
	item.RuleID = &id
	item.RuleName = m.Name
	item.Reason = m.Reason
	return item
}

func checkLine(l Line) error {
	switch {
	case strings.TrimSpace(l.ID) == "":
		return fmt.Errorf("%w: line id is required", ErrInvalidInput)
	case strings.TrimSpace(l.Category) == "":
		return fmt.Errorf("%w: line %s has no category", ErrInvalidInput, l.ID)
	case l.Amount.IsNegative():
		return fmt.Errorf("%w: line %s has a negative amount", ErrInvalidInput, l.ID)
	}
	return nil
}
