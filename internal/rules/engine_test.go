package rules_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taxcore/internal/condition"
	"taxcore/internal/mocks"
	"taxcore/internal/model"
	"taxcore/internal/rules"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	jan1  = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	jun30 = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
)

func newRule(ruleType, action, cond string, value int64, priority int) model.TaxRule {
	return model.TaxRule{
		ID:        uuid.New(),
		RuleType:  ruleType,
		Name:      action + " rule",
		Condition: json.RawMessage(cond),
		Action:    action,
		Value:     decimal.NewFromInt(value),
		Priority:  priority,
		CreatedAt: time.Now(),
	}
}

func amountCtx(amount int64, method string) condition.Context {
	a := decimal.NewFromInt(amount)
	return condition.Context{Amount: &a, PaymentMethod: method}
}

func TestEngine_Select_FiltersEffectiveWindowInclusive(t *testing.T) {
	from := jan1
	to := jun30

	windowed := newRule(model.RuleTypeVAT, model.ActionReject, `{}`, 0, 1)
	windowed.EffectiveFrom = &from
	windowed.EffectiveTo = &to

	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().ListRules(gomock.Any(), model.RuleTypeVAT, gomock.Any()).
		Return([]model.TaxRule{windowed}, nil).
		Times(4)

	engine := rules.NewEngine(repo, nil)
	ctx := context.Background()

	assert.Len(t, engine.Select(ctx, model.RuleTypeVAT, condition.Context{}, from), 1, "lower bound is inclusive")
	assert.Len(t, engine.Select(ctx, model.RuleTypeVAT, condition.Context{}, to.Add(23*time.Hour)), 1, "upper bound is inclusive for the whole day")
	assert.Empty(t, engine.Select(ctx, model.RuleTypeVAT, condition.Context{}, from.AddDate(0, 0, -1)))
	assert.Empty(t, engine.Select(ctx, model.RuleTypeVAT, condition.Context{}, to.AddDate(0, 0, 1)))
}

func TestEngine_Select_OrdersByPriorityThenCreation(t *testing.T) {
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	late := newRule(model.RuleTypeVAT, model.ActionWarn, `{}`, 0, 10)
	late.CreatedAt = base.Add(time.Hour)
	early := newRule(model.RuleTypeVAT, model.ActionWarn, `{}`, 0, 10)
	early.CreatedAt = base
	first := newRule(model.RuleTypeVAT, model.ActionReject, `{}`, 0, 1)
	first.CreatedAt = base.Add(2 * time.Hour)

	engine := rules.NewEngine(rules.NewMemoryRepository(late, early, first), nil)
	matches := engine.Select(context.Background(), model.RuleTypeVAT, condition.Context{}, jan1)

	require.Len(t, matches, 3)
	assert.Equal(t, first.ID, matches[0].RuleID)
	assert.Equal(t, early.ID, matches[1].RuleID)
	assert.Equal(t, late.ID, matches[2].RuleID)
}

func TestEngine_Select_EvaluatesConditions(t *testing.T) {
	cash := newRule(model.RuleTypeVAT, model.ActionReject, `{"payment_method": "CASH", "amount_gte": 20000000}`, 0, 1)
	cash.Description = "cash payment over threshold"
	noCondition := newRule(model.RuleTypeVAT, model.ActionWarn, ``, 0, 2)

	engine := rules.NewEngine(rules.NewMemoryRepository(cash, noCondition), nil)
	ctx := context.Background()

	matches := engine.Select(ctx, model.RuleTypeVAT, amountCtx(25_000_000, model.PaymentCash), jan1)
	require.Len(t, matches, 2)
	assert.Equal(t, "cash payment over threshold", matches[0].Reason)
	assert.Equal(t, model.ActionWarn, matches[1].Action)

	matches = engine.Select(ctx, model.RuleTypeVAT, amountCtx(25_000_000, model.PaymentBankTransfer), jan1)
	require.Len(t, matches, 1)
	assert.Equal(t, noCondition.ID, matches[0].RuleID)
}

func TestEngine_Select_MalformedConditionNeverMatches(t *testing.T) {
	broken := newRule(model.RuleTypeVAT, model.ActionReject, `{"amount_between": [1, 2]}`, 0, 1)

	engine := rules.NewEngine(rules.NewMemoryRepository(broken), nil)
	assert.Empty(t, engine.Select(context.Background(), model.RuleTypeVAT, condition.Context{}, jan1))
}

func TestEngine_Select_StoreFailureYieldsNoMatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().ListRules(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	engine := rules.NewEngine(repo, nil)
	assert.Empty(t, engine.Select(context.Background(), model.RuleTypeVAT, condition.Context{}, jan1))

	var nilEngine *rules.Engine
	assert.Empty(t, nilEngine.Select(context.Background(), model.RuleTypeVAT, condition.Context{}, jan1))
}

func TestEngine_RuleValue(t *testing.T) {
	threshold := newRule(model.RuleTypeVATConfig, model.ActionConfigValue, `{}`, 5_000_000, 1)
	threshold.ConfigKey = "cash_threshold"
	other := newRule(model.RuleTypeVATConfig, model.ActionConfigValue, `{}`, 99, 0)
	other.ConfigKey = "something_else"

	engine := rules.NewEngine(rules.NewMemoryRepository(threshold, other), nil)
	def := decimal.NewFromInt(20_000_000)
	ctx := context.Background()

	got := engine.RuleValue(ctx, model.RuleTypeVATConfig, "cash_threshold", jan1, def)
	assert.True(t, got.Equal(decimal.NewFromInt(5_000_000)), got.String())

	got = engine.RuleValue(ctx, model.RuleTypeCITConfig, "rate", jan1, decimal.RequireFromString("0.20"))
	assert.Equal(t, "0.2", got.String())

	empty := rules.NewEngine(rules.NewMemoryRepository(), nil)
	assert.True(t, empty.RuleValue(ctx, model.RuleTypeVATConfig, "cash_threshold", jan1, def).Equal(def))
}

func TestMostRestrictive(t *testing.T) {
	warn := rules.Match{Action: model.ActionWarn}
	half := rules.Match{Action: model.ActionPartial, Value: decimal.RequireFromString("0.5")}
	tenth := rules.Match{Action: model.ActionPartial, Value: decimal.RequireFromString("0.1")}
	reject := rules.Match{Action: model.ActionReject}

	_, ok := rules.MostRestrictive(nil)
	assert.False(t, ok)

	got, ok := rules.MostRestrictive([]rules.Match{warn, half, tenth})
	require.True(t, ok)
	assert.Equal(t, "0.1", got.Value.String())

	got, _ = rules.MostRestrictive([]rules.Match{half, reject, warn})
	assert.Equal(t, model.ActionReject, got.Action)
}

type countingRepo struct {
	calls atomic.Int32
	inner rules.Repository
}

func (c *countingRepo) ListRules(ctx context.Context, ruleType string, asOf time.Time) ([]model.TaxRule, error) {
	c.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return c.inner.ListRules(ctx, ruleType, asOf)
}

func TestCachedRepository_FetchesOncePerKey(t *testing.T) {
	counter := &countingRepo{inner: rules.NewMemoryRepository(newRule(model.RuleTypeVAT, model.ActionWarn, `{}`, 0, 1))}
	cached := rules.NewCachedRepository(counter)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cached.ListRules(context.Background(), model.RuleTypeVAT, jan1.Add(3*time.Hour))
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), counter.calls.Load())

	_, err := cached.ListRules(context.Background(), model.RuleTypeVAT, jun30)
	require.NoError(t, err)
	assert.Equal(t, int32(2), counter.calls.Load())
}

func TestCachedRepository_DoesNotCacheErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	gomock.InOrder(
		repo.EXPECT().ListRules(gomock.Any(), model.RuleTypeVAT, gomock.Any()).Return(nil, errors.New("timeout")),
		repo.EXPECT().ListRules(gomock.Any(), model.RuleTypeVAT, gomock.Any()).Return([]model.TaxRule{}, nil),
	)

	cached := rules.NewCachedRepository(repo)
	_, err := cached.ListRules(context.Background(), model.RuleTypeVAT, jan1)
	require.Error(t, err)

	got, err := cached.ListRules(context.Background(), model.RuleTypeVAT, jan1)
	require.NoError(t, err)
	assert.Empty(t, got)
}
