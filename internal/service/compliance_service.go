package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxcore/internal/cit"
	"taxcore/internal/model"
	"taxcore/internal/pit"
	"taxcore/internal/repository"
	"taxcore/internal/vat"
	"taxcore/pkg/logger"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Events published when a period run completes.
const (
	EventVATIssuesCompleted  = "vat.issues.completed"
	EventCITPeriodCompleted  = "cit.period.completed"
	EventPITPayrollCompleted = "pit.payroll.completed"
)

// Broadcaster publishes events to connected dashboards. The websocket hub
// implements it.
type Broadcaster interface {
	BroadcastEvent(eventType string, payload interface{})
}

// --- Event payloads ---

type VATIssuesEvent struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Invoices     int    `json:"invoices"`
	Issues       int    `json:"issues"`
	Failed       int    `json:"failed"`
	TotalVAT     string `json:"total_vat"`
	Deductible   string `json:"deductible_vat"`
	NonDeductVAT string `json:"non_deductible_vat"`
}

type CITPeriodEvent struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Lines         int    `json:"lines"`
	Failed        int    `json:"failed"`
	TotalAddBacks string `json:"total_add_backs"`
	CITPayable    string `json:"cit_payable"`
}

type PITPayrollEvent struct {
	Period    string `json:"period"`
	Employees int    `json:"employees"`
	Failed    int    `json:"failed"`
	TotalTax  string `json:"total_tax"`
}

type ComplianceService interface {
	ValidateVAT(ctx context.Context, tx vat.Transaction) (vat.Result, error)
	VATIssues(ctx context.Context, from, to time.Time) (*vat.IssuesReport, error)
	CalculateCIT(ctx context.Context, in cit.Input) (cit.Result, error)
	PeriodCIT(ctx context.Context, from, to time.Time, accountingProfit decimal.Decimal) (cit.Result, error)
	CalculatePIT(ctx context.Context, in pit.Input) (pit.Result, error)
	CalculatePITBatch(ctx context.Context, inputs []pit.Input) pit.BatchResult
	PayrollPIT(ctx context.Context, period string) (pit.BatchResult, error)
}

type complianceService struct {
	validator   *vat.Validator
	reporter    *vat.Reporter
	citCalc     *cit.Calculator
	pitCalc     *pit.Calculator
	expenseRepo repository.ExpenseLineRepository
	payrollRepo repository.PayrollRepository
	events      Broadcaster
	logger      *zap.Logger
}

func NewComplianceService(
	validator *vat.Validator,
	reporter *vat.Reporter,
	citCalc *cit.Calculator,
	pitCalc *pit.Calculator,
	expenseRepo repository.ExpenseLineRepository,
	payrollRepo repository.PayrollRepository,
	events Broadcaster,
	log *zap.Logger,
) ComplianceService {
	return &complianceService{
		validator:   validator,
		reporter:    reporter,
		citCalc:     citCalc,
		pitCalc:     pitCalc,
		expenseRepo: expenseRepo,
		payrollRepo: payrollRepo,
		events:      events,
		logger:      logger.OrNop(log),
	}
}

func (s *complianceService) ValidateVAT(ctx context.Context, tx vat.Transaction) (vat.Result, error) {
	return s.validator.Validate(ctx, tx)
}

// VATIssues validates the purchase invoices dated in [from, to].
func (s *complianceService) VATIssues(ctx context.Context, from, to time.Time) (*vat.IssuesReport, error) {
	report, err := s.reporter.Issues(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sum := report.Summary
	s.publish(EventVATIssuesCompleted, VATIssuesEvent{
		From:         from.Format(time.DateOnly),
		To:           to.Format(time.DateOnly),
		Invoices:     sum.TotalInvoices,
		Issues:       len(report.Issues),
		Failed:       sum.FailedCount,
		TotalVAT:     sum.TotalVAT.String(),
		Deductible:   sum.DeductibleVAT.String(),
		NonDeductVAT: sum.NonDeductibleVAT.String(),
	})
	return report, nil
}

func (s *complianceService) CalculateCIT(ctx context.Context, in cit.Input) (cit.Result, error) {
	return s.citCalc.Calculate(ctx, in)
}

// PeriodCIT runs the add-back calculation over the expense lines booked in
// [from, to].
func (s *complianceService) PeriodCIT(ctx context.Context, from, to time.Time, accountingProfit decimal.Decimal) (cit.Result, error) {
	if to.Before(from) {
		return cit.Result{}, fmt.Errorf("%w: %s is before %s", ErrInvalidPeriod,
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	expenses, err := s.expenseRepo.ListByPeriod(ctx, from, to)
	if err != nil {
		return cit.Result{}, fmt.Errorf("failed to list expense lines: %w", err)
	}

	res, err := s.citCalc.Calculate(ctx, cit.Input{
		Period:           cit.Period{Start: from, End: to},
		AccountingProfit: accountingProfit,
		Lines:            lo.Map(expenses, func(e model.ExpenseLine, _ int) cit.Line { return cit.FromExpense(e) }),
	})
	if err != nil {
		return cit.Result{}, err
	}

	s.publish(EventCITPeriodCompleted, CITPeriodEvent{
		From:          from.Format(time.DateOnly),
		To:            to.Format(time.DateOnly),
		Lines:         len(expenses),
		Failed:        len(res.Failures),
		TotalAddBacks: res.TotalAddBacks.String(),
		CITPayable:    res.CITPayable.String(),
	})
	return res, nil
}

func (s *complianceService) CalculatePIT(ctx context.Context, in pit.Input) (pit.Result, error) {
	return s.pitCalc.Calculate(ctx, in)
}

func (s *complianceService) CalculatePITBatch(ctx context.Context, inputs []pit.Input) pit.BatchResult {
	return s.pitCalc.CalculateBatch(ctx, inputs)
}

// PayrollPIT computes PIT for every payroll row of a YYYY-MM period.
func (s *complianceService) PayrollPIT(ctx context.Context, period string) (pit.BatchResult, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return pit.BatchResult{}, fmt.Errorf("%w: %q is not a YYYY-MM period", ErrInvalidPeriod, period)
	}

	entries, err := s.payrollRepo.ListByPeriod(ctx, period)
	if err != nil {
		return pit.BatchResult{}, fmt.Errorf("failed to list payroll: %w", err)
	}

	batch := s.pitCalc.CalculateBatch(ctx, lo.Map(entries, func(p model.PayrollEntry, _ int) pit.Input {
		return pit.FromPayroll(p)
	}))

	s.publish(EventPITPayrollCompleted, PITPayrollEvent{
		Period:    period,
		Employees: len(entries),
		Failed:    len(batch.Errors),
		TotalTax:  batch.TotalTax.String(),
	})
	return batch, nil
}

func (s *complianceService) publish(eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.BroadcastEvent(eventType, payload)
	s.logger.Debug("event published", zap.String("type", eventType))
}
