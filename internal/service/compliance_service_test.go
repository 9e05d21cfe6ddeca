package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"taxcore/internal/cit"
	"taxcore/internal/model"
	"taxcore/internal/pit"
	"taxcore/internal/rules"
	"taxcore/internal/service"
	"taxcore/internal/taxcode"
	"taxcore/internal/vat"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []vat.Transaction

func (s staticSource) ListTransactions(_ context.Context, _, _ time.Time) ([]vat.Transaction, error) {
	return s, nil
}

func mil(n int64) decimal.Decimal { return decimal.NewFromInt(n * 1_000_000) }

func intPtr(n int) *int { return &n }

type complianceFixture struct {
	svc      service.ComplianceService
	events   *recordingBroadcaster
	expenses *fakeExpenseRepo
	payroll  *fakePayrollRepo
}

func newComplianceFixture(t *testing.T, txs []vat.Transaction, rs ...model.TaxRule) complianceFixture {
	t.Helper()
	engine := rules.NewEngine(rules.NewMemoryRepository(rs...), nil)
	validator := vat.NewValidator(vat.DefaultConfig(), engine, nil, taxcode.NewMatcher(0), nil)
	reporter := vat.NewReporter(validator, staticSource(txs), 2, nil)
	pitCalc, err := pit.NewCalculator(pit.DefaultConfig(), engine, nil)
	require.NoError(t, err)

	f := complianceFixture{
		events:   &recordingBroadcaster{},
		expenses: &fakeExpenseRepo{},
		payroll:  &fakePayrollRepo{},
	}
	f.svc = service.NewComplianceService(
		validator, reporter,
		cit.NewCalculator(cit.DefaultConfig(), engine, nil),
		pitCalc,
		f.expenses, f.payroll, f.events, nil,
	)
	return f
}

func cashReject() model.TaxRule {
	return model.TaxRule{
		ID:        uuid.New(),
		RuleType:  model.RuleTypeVAT,
		Name:      "cash threshold",
		Condition: json.RawMessage(`{"payment_method": "CASH", "amount_gte": 20000000}`),
		Action:    model.ActionReject,
		Priority:  100,
	}
}

func TestVATIssues_PublishesSummary(t *testing.T) {
	day := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	txs := []vat.Transaction{
		{ID: "1", InvoiceDate: day, SupplierTaxCode: "0101234567", PaymentMethod: model.PaymentCash, Amount: mil(25), VATAmount: mil(2)},
	}
	txs = append(txs, vat.Transaction{ID: "2", InvoiceDate: day, SupplierTaxCode: "0101234567", PaymentMethod: model.PaymentBankTransfer, Amount: mil(30), VATAmount: mil(3)})
	f := newComplianceFixture(t, txs, cashReject())

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	report, err := f.svc.VATIssues(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.TotalInvoices)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "1", report.Issues[0].TransactionID)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, service.EventVATIssuesCompleted, ev.Type)
	payload, ok := ev.Payload.(service.VATIssuesEvent)
	require.True(t, ok)
	assert.Equal(t, "2025-03-01", payload.From)
	assert.Equal(t, 1, payload.Issues)
	assert.Equal(t, mil(3).String(), payload.Deductible)
}

func TestVATIssues_InvertedRangeIsNotPublished(t *testing.T) {
	f := newComplianceFixture(t, nil)
	day := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.VATIssues(context.Background(), day, day.AddDate(0, 0, -1))
	require.ErrorIs(t, err, vat.ErrInvalidTransaction)
	assert.Empty(t, f.events.events)
}

func TestPeriodCIT_UsesStoredExpenses(t *testing.T) {
	penalty := model.TaxRule{
		ID:        uuid.New(),
		RuleType:  model.RuleTypeCITAddBack,
		Name:      "administrative penalties",
		Condition: json.RawMessage(`{"category_in": ["PENALTY"]}`),
		Action:    model.ActionReject,
		Priority:  100,
	}
	f := newComplianceFixture(t, nil, penalty)
	day := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)
	f.expenses.lines = []model.ExpenseLine{
		{ID: uuid.New(), ExpenseDate: day, Category: model.CategoryPenalty, Amount: mil(10)},
		{ID: uuid.New(), ExpenseDate: day, Category: model.CategoryOther, Amount: mil(40)},
	}

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	res, err := f.svc.PeriodCIT(context.Background(), from, to, mil(100))
	require.NoError(t, err)

	assert.True(t, res.TotalAddBacks.Equal(mil(10)), res.TotalAddBacks.String())
	assert.True(t, res.TaxableIncome.Equal(mil(110)), res.TaxableIncome.String())
	assert.True(t, res.CITPayable.Equal(mil(22)), res.CITPayable.String())

	require.Len(t, f.events.events, 1)
	payload := f.events.events[0].Payload.(service.CITPeriodEvent)
	assert.Equal(t, 2, payload.Lines)
	assert.Equal(t, mil(22).String(), payload.CITPayable)
}

func TestPeriodCIT_Errors(t *testing.T) {
	f := newComplianceFixture(t, nil)
	day := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.PeriodCIT(context.Background(), day, day.AddDate(0, 0, -1), mil(1))
	assert.ErrorIs(t, err, service.ErrInvalidPeriod)

	f.expenses.err = errStore
	_, err = f.svc.PeriodCIT(context.Background(), day, day, mil(1))
	assert.ErrorIs(t, err, errStore)
	assert.Empty(t, f.events.events)
}

func TestPayrollPIT(t *testing.T) {
	f := newComplianceFixture(t, nil)
	ctx := context.Background()
	for _, e := range []model.PayrollEntry{
		{Period: "2025-06", EmployeeID: "E001", GrossIncome: mil(20), InsurancePaid: decimal.NewFromInt(2_100_000), Dependents: intPtr(1), Method: model.PITMethodProgressive, IsResident: true},
		{Period: "2025-06", EmployeeID: "E002", GrossIncome: mil(5), Method: model.PITMethodProgressive, IsResident: true},
		{Period: "2025-07", EmployeeID: "E003", GrossIncome: mil(50), Dependents: intPtr(0), Method: model.PITMethodProgressive, IsResident: true},
	} {
		require.NoError(t, f.payroll.Create(ctx, &e))
	}

	batch, err := f.svc.PayrollPIT(ctx, "2025-06")
	require.NoError(t, err)

	require.Len(t, batch.Results, 1)
	assert.Equal(t, "E001", batch.Results[0].EmployeeID)
	assert.True(t, batch.TotalTax.Equal(decimal.NewFromInt(125_000)), batch.TotalTax.String())
	assert.Contains(t, batch.Errors, "E002")

	require.Len(t, f.events.events, 1)
	payload := f.events.events[0].Payload.(service.PITPayrollEvent)
	assert.Equal(t, "2025-06", payload.Period)
	assert.Equal(t, 2, payload.Employees)
	assert.Equal(t, 1, payload.Failed)
}

func TestPayrollPIT_RejectsMalformedPeriod(t *testing.T) {
	f := newComplianceFixture(t, nil)

	_, err := f.svc.PayrollPIT(context.Background(), "June 2025")
	assert.ErrorIs(t, err, service.ErrInvalidPeriod)
	assert.Empty(t, f.events.events)
}

func TestNilBroadcasterIsAllowed(t *testing.T) {
	engine := rules.NewEngine(rules.NewMemoryRepository(), nil)
	pitCalc, err := pit.NewCalculator(pit.DefaultConfig(), engine, nil)
	require.NoError(t, err)
	svc := service.NewComplianceService(nil, nil, nil, pitCalc, nil, &fakePayrollRepo{}, nil, nil)

	batch, err := svc.PayrollPIT(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
}
