package vat

import (
	"context"
	"fmt"
	"time"

	"taxcore/internal/rules"
	"taxcore/internal/taxcode"
	"taxcore/pkg/logger"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Issue status values
const (
	StatusDeductible = "DEDUCTIBLE"
	StatusPartial    = "PARTIAL"
	StatusRejected   = "REJECTED"
)

const defaultWorkers = 8

// TransactionSource lists the purchases booked in a date range (inclusive).
type TransactionSource interface {
	ListTransactions(ctx context.Context, from, to time.Time) ([]Transaction, error)
}

type Summary struct {
	TotalInvoices      int             `json:"total_invoices"`
	TotalVAT           decimal.Decimal `json:"total_vat"`
	DeductibleCount    int             `json:"deductible_count"`
	DeductibleVAT      decimal.Decimal `json:"deductible_vat"`
	NonDeductibleCount int             `json:"non_deductible_count"`
	NonDeductibleVAT   decimal.Decimal `json:"non_deductible_vat"`
	WarningCount       int             `json:"warning_count"`
	PartialCount       int             `json:"partial_count"`
	FailedCount        int             `json:"failed_count"`
}

// IssueItem is a transaction that was rejected, partially deducted or warned about.
type IssueItem struct {
	TransactionID       string          `json:"transaction_id"`
	InvoiceNumber       string          `json:"invoice_number"`
	InvoiceDate         time.Time       `json:"invoice_date"`
	SupplierTaxCode     string          `json:"supplier_tax_code"`
	SupplierName        string          `json:"supplier_name"`
	PaymentMethod       string          `json:"payment_method"`
	Amount              decimal.Decimal `json:"amount"`
	VATAmount           decimal.Decimal `json:"vat_amount"`
	Status              string          `json:"status"`
	DeductibleAmount    decimal.Decimal `json:"deductible_amount"`
	NonDeductibleAmount decimal.Decimal `json:"non_deductible_amount"`
	Errors              []string        `json:"errors"`
	Warnings            []string        `json:"warnings"`
}

// Failure records a transaction that could not be evaluated.
type Failure struct {
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error"`
}

type IssuesReport struct {
	From     time.Time   `json:"from"`
	To       time.Time   `json:"to"`
	Summary  Summary     `json:"summary"`
	Issues   []IssueItem `json:"issues"`
	Failures []Failure   `json:"failures"`
}

// Reporter runs the validator over every purchase in a period.
type Reporter struct {
	validator *Validator
	source    TransactionSource
	workers   int
	logger    *zap.Logger
}

func NewReporter(validator *Validator, source TransactionSource, workers int, log *zap.Logger) *Reporter {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Reporter{validator: validator, source: source, workers: workers, logger: logger.OrNop(log)}
}

// Issues validates every transaction in [from, to] in parallel. Rules and
// supplier lookups are fetched once per run. A transaction that fails
// validation is listed under Failures and left out of the summary.
func (r *Reporter) Issues(ctx context.Context, from, to time.Time) (*IssuesReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: period end %s is before start %s", ErrInvalidTransaction,
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	txs, err := r.source.ListTransactions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	v := r.validator
	var registry taxcode.Lookuper
	if v.registry != nil {
		registry = taxcode.NewBatchLookup(v.registry)
	}
	engine := v.engine
	if engine != nil {
		engine = engine.WithRepository(rules.NewCachedRepository(engine.Repository()))
	}
	v = v.scoped(engine, registry)

	results := make([]Result, len(txs))
	errs := make([]error, len(txs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range txs {
		g.Go(func() error {
			results[i], errs[i] = v.Validate(gctx, txs[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &IssuesReport{From: from, To: to, Issues: []IssueItem{}, Failures: []Failure{}}
	report.Summary.TotalVAT = decimal.Zero
	report.Summary.DeductibleVAT = decimal.Zero
	report.Summary.NonDeductibleVAT = decimal.Zero

	for i, tx := range txs {
		if errs[i] != nil {
			r.logger.Warn("VAT validation failed",
				zap.String("transaction_id", tx.ID),
				zap.Error(errs[i]))
			report.Failures = append(report.Failures, Failure{TransactionID: tx.ID, Error: errs[i].Error()})
			continue
		}
		report.add(tx, results[i])
	}
	report.Summary.FailedCount = len(report.Failures)
	report.Summary.WarningCount = lo.CountBy(results, func(res Result) bool { return len(res.Warnings) > 0 })

	r.logger.Info("VAT issues report built",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("transactions", len(txs)),
		zap.Int("issues", len(report.Issues)),
		zap.Int("failed", report.Summary.FailedCount))

	return report, nil
}

func (rep *IssuesReport) add(tx Transaction, res Result) {
	s := &rep.Summary
	s.TotalInvoices++
	s.TotalVAT = s.TotalVAT.Add(tx.VATAmount)
	s.DeductibleVAT = s.DeductibleVAT.Add(res.DeductibleAmount)
	s.NonDeductibleVAT = s.NonDeductibleVAT.Add(res.NonDeductibleAmount)

	status := StatusDeductible
	switch {
	case !res.IsDeductible:
		status = StatusRejected
		s.NonDeductibleCount++
	case res.IsPartial:
		status = StatusPartial
		s.PartialCount++
		s.DeductibleCount++
	default:
		s.DeductibleCount++
	}

	if status == StatusDeductible && len(res.Warnings) == 0 {
		return
	}
	rep.Issues = append(rep.Issues, IssueItem{
		TransactionID:       tx.ID,
		InvoiceNumber:       tx.InvoiceNumber,
		InvoiceDate:         tx.InvoiceDate,
		SupplierTaxCode:     tx.SupplierTaxCode,
		SupplierName:        tx.SupplierName,
		PaymentMethod:       tx.PaymentMethod,
		Amount:              tx.Amount,
		VATAmount:           tx.VATAmount,
		Status:              status,
		DeductibleAmount:    res.DeductibleAmount,
		NonDeductibleAmount: res.NonDeductibleAmount,
		Errors:              res.Errors,
		Warnings:            res.Warnings,
	})
}

// Rejected returns the issues whose VAT was refused entirely.
func (rep *IssuesReport) Rejected() []IssueItem {
	return lo.Filter(rep.Issues, func(it IssueItem, _ int) bool { return it.Status == StatusRejected })
}
