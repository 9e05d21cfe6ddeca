// Package pit computes monthly personal income tax on employment income.
package pit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxcore/internal/model"
	"taxcore/internal/rules"
	"taxcore/pkg/logger"
	"taxcore/pkg/money"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingDependents = errors.New("dependents count is required for progressive PIT")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid PIT config")
)

// Config keys overridable through PIT_CONFIG rules.
const (
	ConfigSelfDeduction      = "self_deduction"
	ConfigDependentDeduction = "dependent_deduction"
)

const defaultWorkers = 8

type Input struct {
	EmployeeID    string          `json:"employee_id"`
	EmployeeName  string          `json:"employee_name,omitempty"`
	Period        string          `json:"period,omitempty"`
	GrossIncome   decimal.Decimal `json:"gross_income"`
	InsurancePaid decimal.Decimal `json:"insurance_paid"`
	Dependents    *int            `json:"dependents"`
	Method        string          `json:"method"` // PROGRESSIVE (default) or FLAT
	IsResident    bool            `json:"is_resident"`
	// AsOf selects the PIT_CONFIG overrides in force; the calculator clock is used when zero.
	AsOf time.Time `json:"as_of,omitempty"`
}

func FromPayroll(p model.PayrollEntry) Input {
	in := Input{
		EmployeeID:    p.EmployeeID,
		EmployeeName:  p.EmployeeName,
		Period:        p.Period,
		GrossIncome:   p.GrossIncome,
		InsurancePaid: p.InsurancePaid,
		Dependents:    p.Dependents,
		Method:        p.Method,
		IsResident:    p.IsResident,
	}
	if t, err := time.Parse("2006-01", p.Period); err == nil {
		in.AsOf = t.AddDate(0, 1, -1)
	}
	return in
}

type BracketDetail struct {
	Bracket       int              `json:"bracket"`
	Lower         decimal.Decimal  `json:"lower"`
	Upper         *decimal.Decimal `json:"upper"`
	Rate          decimal.Decimal  `json:"rate"`
	TaxableAmount decimal.Decimal  `json:"taxable_amount"`
	Tax           decimal.Decimal  `json:"tax"`
}

type Result struct {
	EmployeeID         string          `json:"employee_id"`
	EmployeeName       string          `json:"employee_name,omitempty"`
	Method             string          `json:"method"`
	GrossIncome        decimal.Decimal `json:"gross_income"`
	InsurancePaid      decimal.Decimal `json:"insurance_paid"`
	SelfDeduction      decimal.Decimal `json:"self_deduction"`
	Dependents         int             `json:"dependents"`
	DependentDeduction decimal.Decimal `json:"dependent_deduction"`
	TaxableIncome      decimal.Decimal `json:"taxable_income"`
	// Rate is set for the flat method only.
	Rate      *decimal.Decimal `json:"rate,omitempty"`
	TotalTax  decimal.Decimal  `json:"total_tax"`
	NetIncome decimal.Decimal  `json:"net_income"`
	Brackets  []BracketDetail  `json:"brackets"`
}

type Calculator struct {
	cfg     Config
	engine  *rules.Engine
	workers int
	logger  *zap.Logger
	clock   func() time.Time
}

// NewCalculator copies cfg. The engine is optional and only consulted for
// deduction overrides.
func NewCalculator(cfg Config, engine *rules.Engine, log *zap.Logger) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{
		cfg:     cfg.clone(),
		engine:  engine,
		workers: defaultWorkers,
		logger:  logger.OrNop(log),
		clock:   time.Now,
	}, nil
}

func (c *Calculator) Calculate(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return Result{}, fmt.Errorf("%w: employee_id is required", ErrInvalidInput)
	}
	if in.GrossIncome.IsNegative() || in.InsurancePaid.IsNegative() {
		return Result{}, fmt.Errorf("%w: employee %s has negative income or insurance", ErrInvalidInput, in.EmployeeID)
	}

	res := Result{
		EmployeeID:         in.EmployeeID,
		EmployeeName:       in.EmployeeName,
		GrossIncome:        in.GrossIncome,
		InsurancePaid:      in.InsurancePaid,
		SelfDeduction:      decimal.Zero,
		DependentDeduction: decimal.Zero,
		TaxableIncome:      decimal.Zero,
		TotalTax:           decimal.Zero,
		Brackets:           []BracketDetail{},
	}

	switch strings.ToUpper(in.Method) {
	case "", model.PITMethodProgressive:
		res.Method = model.PITMethodProgressive
		if err := c.progressive(ctx, in, &res); err != nil {
			return Result{}, err
		}
	case model.PITMethodFlat:
		res.Method = model.PITMethodFlat
		c.flat(in, &res)
	default:
		return Result{}, fmt.Errorf("%w: unknown method %q", ErrInvalidInput, in.Method)
	}

	res.NetIncome = in.GrossIncome.Sub(in.InsurancePaid).Sub(res.TotalTax)
	return res, nil
}

func (c *Calculator) progressive(ctx context.Context, in Input, res *Result) error {
	if in.Dependents == nil {
		return fmt.Errorf("employee %s: %w", in.EmployeeID, ErrMissingDependents)
	}
	if *in.Dependents < 0 {
		return fmt.Errorf("%w: employee %s has a negative dependents count", ErrInvalidInput, in.EmployeeID)
	}

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = c.clock()
	}
	self := c.engine.RuleValue(ctx, model.RuleTypePITConfig, ConfigSelfDeduction, asOf, c.cfg.SelfDeduction)
	perDependent := c.engine.RuleValue(ctx, model.RuleTypePITConfig, ConfigDependentDeduction, asOf, c.cfg.DependentDeduction)

	res.Dependents = *in.Dependents
	res.SelfDeduction = self
	res.DependentDeduction = perDependent.Mul(decimal.NewFromInt(int64(*in.Dependents)))
	res.TaxableIncome = money.MaxZero(in.GrossIncome.Sub(in.InsurancePaid).Sub(self).Sub(res.DependentDeduction))

	res.Brackets = c.applyBrackets(res.TaxableIncome)
	for _, b := range res.Brackets {
		res.TotalTax = res.TotalTax.Add(b.Tax)
	}
	return nil
}

// applyBrackets splits taxable across the ladder. Each bracket's tax is
// rounded to the dong so the details always sum to the total.
func (c *Calculator) applyBrackets(taxable decimal.Decimal) []BracketDetail {
	details := []BracketDetail{}
	for i, b := range c.cfg.Brackets {
		if !taxable.GreaterThan(b.Lower) {
			break
		}
		top := taxable
		if b.Upper != nil && b.Upper.LessThan(taxable) {
			top = *b.Upper
		}
		slice := top.Sub(b.Lower)
		details = append(details, BracketDetail{
			Bracket:       i + 1,
			Lower:         b.Lower,
			Upper:         b.Upper,
			Rate:          b.Rate,
			TaxableAmount: slice,
			Tax:           money.Dong(slice.Mul(b.Rate)),
		})
	}
	return details
}

func (c *Calculator) flat(in Input, res *Result) {
	rate := c.cfg.NonResidentFlatRate
	taxable := in.GrossIncome
	if in.IsResident {
		rate = c.cfg.ResidentFlatRate
		if in.GrossIncome.LessThan(c.cfg.FlatThreshold) {
			taxable = decimal.Zero
		}
	}
	res.Rate = &rate
	res.TaxableIncome = taxable
	res.TotalTax = money.Dong(taxable.Mul(rate))
}

type BatchResult struct {
	Results []Result `json:"results"`
	// Errors maps employee id to the reason that employee could not be computed.
	// A repeated id is keyed "id#index"; a blank one "#index".
	Errors   map[string]string `json:"errors"`
	TotalTax decimal.Decimal   `json:"total_tax"`
}

// CalculateBatch computes every input independently and in parallel. A failed
// employee is recorded in Errors and excluded from TotalTax; the batch never
// stops early. Results keep the input order.
func (c *Calculator) CalculateBatch(ctx context.Context, inputs []Input) BatchResult {
	engine := c.engine
	if engine != nil {
		engine = engine.WithRepository(rules.NewCachedRepository(engine.Repository()))
	}
	scoped := *c
	scoped.engine = engine

	results := make([]*Result, len(inputs))
	failures := make([]error, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range inputs {
		g.Go(func() error {
			res, err := scoped.Calculate(gctx, inputs[i])
			if err != nil {
				c.logger.Warn("PIT calculation failed",
					zap.String("employee_id", inputs[i].EmployeeID),
					zap.Int("index", i),
					zap.Error(err))
				failures[i] = err
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	errs := make(map[string]string)
	for i, err := range failures {
		if err == nil {
			continue
		}
		// Repeated or blank ids get the input index so no failure is overwritten.
		key := strings.TrimSpace(inputs[i].EmployeeID)
		if key == "" {
			key = fmt.Sprintf("#%d", i)
		} else if _, taken := errs[key]; taken {
			key = fmt.Sprintf("%s#%d", key, i)
		}
		errs[key] = err.Error()
	}

	out := BatchResult{Results: []Result{}, Errors: errs, TotalTax: decimal.Zero}
	for _, r := range results {
		if r == nil {
			continue
		}
		out.Results = append(out.Results, *r)
		out.TotalTax = out.TotalTax.Add(r.TotalTax)
	}
	return out
}
