package pit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taxcore/internal/model"
	"taxcore/internal/pit"
	"taxcore/internal/rules"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func deps(n int) *int { return &n }

func newCalculator(t *testing.T, rs ...model.TaxRule) *pit.Calculator {
	t.Helper()
	var engine *rules.Engine
	if len(rs) > 0 {
		engine = rules.NewEngine(rules.NewMemoryRepository(rs...), nil)
	}
	calc, err := pit.NewCalculator(pit.DefaultConfig(), engine, nil)
	require.NoError(t, err)
	return calc
}

func TestCalculate_ProgressiveScenario(t *testing.T) {
	calc := newCalculator(t)

	res, err := calc.Calculate(context.Background(), pit.Input{
		EmployeeID:    "E001",
		GrossIncome:   d(20_000_000),
		InsurancePaid: d(2_100_000),
		Dependents:    deps(1),
	})
	require.NoError(t, err)

	assert.Equal(t, model.PITMethodProgressive, res.Method)
	assert.True(t, res.SelfDeduction.Equal(d(11_000_000)))
	assert.True(t, res.DependentDeduction.Equal(d(4_400_000)))
	assert.True(t, res.TaxableIncome.Equal(d(2_500_000)), res.TaxableIncome.String())
	assert.True(t, res.TotalTax.Equal(d(125_000)), res.TotalTax.String())
	assert.True(t, res.NetIncome.Equal(d(17_775_000)), res.NetIncome.String())

	require.Len(t, res.Brackets, 1)
	assert.Equal(t, 1, res.Brackets[0].Bracket)
	assert.Equal(t, "0.05", res.Brackets[0].Rate.String())
	assert.True(t, res.Brackets[0].TaxableAmount.Equal(d(2_500_000)))
}

func TestCalculate_FullLadder(t *testing.T) {
	calc := newCalculator(t)

	res, err := calc.Calculate(context.Background(), pit.Input{
		EmployeeID:  "E002",
		GrossIncome: d(100_000_000),
		Dependents:  deps(0),
	})
	require.NoError(t, err)

	require.Len(t, res.Brackets, 7)
	want := []int64{250_000, 500_000, 1_200_000, 2_800_000, 5_000_000, 8_400_000, 3_150_000}
	for i, b := range res.Brackets {
		assert.True(t, b.Tax.Equal(d(want[i])), "bracket %d: %s", i+1, b.Tax)
	}
	assert.Nil(t, res.Brackets[6].Upper)
	assert.True(t, res.TotalTax.Equal(d(21_300_000)), res.TotalTax.String())
}

func TestCalculate_BracketsSumToTotal(t *testing.T) {
	calc := newCalculator(t)

	for gross := int64(0); gross <= 150_000_000; gross += 3_333_337 {
		for n := 0; n <= 3; n++ {
			res, err := calc.Calculate(context.Background(), pit.Input{
				EmployeeID:    "E",
				GrossIncome:   d(gross),
				InsurancePaid: d(gross / 10),
				Dependents:    deps(n),
			})
			require.NoError(t, err)

			sum := decimal.Zero
			for _, b := range res.Brackets {
				assert.True(t, b.TaxableAmount.IsPositive())
				sum = sum.Add(b.Tax)
			}
			assert.True(t, sum.Equal(res.TotalTax), "gross=%d dependents=%d", gross, n)
			if !res.TaxableIncome.IsPositive() {
				assert.True(t, res.TotalTax.IsZero())
				assert.Empty(t, res.Brackets)
			}
		}
	}
}

func TestCalculate_ZeroTaxable(t *testing.T) {
	calc := newCalculator(t)

	res, err := calc.Calculate(context.Background(), pit.Input{
		EmployeeID:  "E003",
		GrossIncome: d(12_000_000),
		Dependents:  deps(2),
	})
	require.NoError(t, err)
	assert.True(t, res.TaxableIncome.IsZero())
	assert.True(t, res.TotalTax.IsZero())
	assert.Empty(t, res.Brackets)
}

func TestCalculate_Flat(t *testing.T) {
	calc := newCalculator(t)

	tests := []struct {
		name     string
		gross    int64
		resident bool
		want     int64
	}{
		{"resident below threshold", 1_999_999, true, 0},
		{"resident at threshold", 2_000_000, true, 200_000},
		{"resident casual labor", 15_000_000, true, 1_500_000},
		{"non-resident", 1_000_000, false, 200_000},
		{"non-resident large", 50_000_000, false, 10_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := calc.Calculate(context.Background(), pit.Input{
				EmployeeID:  "F",
				GrossIncome: d(tt.gross),
				Method:      model.PITMethodFlat,
				IsResident:  tt.resident,
			})
			require.NoError(t, err)
			assert.Equal(t, model.PITMethodFlat, res.Method)
			assert.True(t, res.TotalTax.Equal(d(tt.want)), res.TotalTax.String())
			require.NotNil(t, res.Rate)
			assert.Empty(t, res.Brackets)
		})
	}
}

func TestCalculate_InputErrors(t *testing.T) {
	calc := newCalculator(t)
	ctx := context.Background()

	_, err := calc.Calculate(ctx, pit.Input{EmployeeID: "E", GrossIncome: d(1)})
	assert.ErrorIs(t, err, pit.ErrMissingDependents)

	_, err = calc.Calculate(ctx, pit.Input{GrossIncome: d(1), Dependents: deps(0)})
	assert.ErrorIs(t, err, pit.ErrInvalidInput)

	_, err = calc.Calculate(ctx, pit.Input{EmployeeID: "E", GrossIncome: d(-1), Dependents: deps(0)})
	assert.ErrorIs(t, err, pit.ErrInvalidInput)

	_, err = calc.Calculate(ctx, pit.Input{EmployeeID: "E", Method: "LUMP_SUM", Dependents: deps(0)})
	assert.ErrorIs(t, err, pit.ErrInvalidInput)

	// Flat treatment does not need the dependents count.
	_, err = calc.Calculate(ctx, pit.Input{EmployeeID: "E", GrossIncome: d(5_000_000), Method: model.PITMethodFlat})
	assert.NoError(t, err)
}

func TestCalculate_DeductionOverrides(t *testing.T) {
	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	override := func(key string, value int64) model.TaxRule {
		return model.TaxRule{
			ID:            uuid.New(),
			RuleType:      model.RuleTypePITConfig,
			Name:          key,
			ConfigKey:     key,
			Action:        model.ActionConfigValue,
			Value:         d(value),
			EffectiveFrom: &from,
			CreatedAt:     time.Now(),
		}
	}
	calc := newCalculator(t,
		override(pit.ConfigSelfDeduction, 15_500_000),
		override(pit.ConfigDependentDeduction, 6_200_000))

	in := pit.Input{
		EmployeeID:    "E001",
		GrossIncome:   d(30_000_000),
		InsurancePaid: d(2_100_000),
		Dependents:    deps(1),
		AsOf:          time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
	}

	before, err := calc.Calculate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, before.TaxableIncome.Equal(d(12_500_000)), before.TaxableIncome.String())

	in.AsOf = from
	after, err := calc.Calculate(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, after.SelfDeduction.Equal(d(15_500_000)))
	assert.True(t, after.TaxableIncome.Equal(d(6_200_000)), after.TaxableIncome.String())
	assert.True(t, after.TotalTax.Equal(d(370_000)), after.TotalTax.String())
}

func TestCalculateBatch_IsolatesFailures(t *testing.T) {
	calc := newCalculator(t)

	inputs := make([]pit.Input, 0, 5)
	for i := 1; i <= 5; i++ {
		inputs = append(inputs, pit.Input{
			EmployeeID:    fmt.Sprintf("E%03d", i),
			GrossIncome:   d(20_000_000),
			InsurancePaid: d(2_100_000),
			Dependents:    deps(1),
		})
	}
	inputs[2].Dependents = nil

	batch := calc.CalculateBatch(context.Background(), inputs)

	require.Len(t, batch.Results, 4)
	require.Len(t, batch.Errors, 1)
	assert.Contains(t, batch.Errors["E003"], "dependents")
	assert.Equal(t, "E001", batch.Results[0].EmployeeID)
	assert.Equal(t, "E004", batch.Results[2].EmployeeID)
	assert.True(t, batch.TotalTax.Equal(d(500_000)), batch.TotalTax.String())
}

func TestCalculateBatch_KeepsEveryFailureForRepeatedIDs(t *testing.T) {
	calc := newCalculator(t)

	inputs := []pit.Input{
		{EmployeeID: "dup", GrossIncome: d(20_000_000)},
		{EmployeeID: "dup", GrossIncome: d(15_000_000)},
		{EmployeeID: "", GrossIncome: d(10_000_000)},
	}

	batch := calc.CalculateBatch(context.Background(), inputs)

	assert.Empty(t, batch.Results)
	require.Len(t, batch.Errors, 3)
	assert.Contains(t, batch.Errors, "dup")
	assert.Contains(t, batch.Errors, "dup#1")
	assert.Contains(t, batch.Errors, "#2")
	assert.True(t, batch.TotalTax.IsZero())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, pit.DefaultConfig().Validate())

	gap := pit.DefaultConfig()
	gap.Brackets[1].Lower = d(6_000_000)
	assert.ErrorIs(t, gap.Validate(), pit.ErrInvalidConfig)

	closed := pit.DefaultConfig()
	top := d(200_000_000)
	closed.Brackets[6].Upper = &top
	assert.ErrorIs(t, closed.Validate(), pit.ErrInvalidConfig)

	_, err := pit.NewCalculator(pit.Config{}, nil, nil)
	assert.ErrorIs(t, err, pit.ErrInvalidConfig)
}

func TestNewCalculator_CopiesConfig(t *testing.T) {
	cfg := pit.DefaultConfig()
	calc, err := pit.NewCalculator(cfg, nil, nil)
	require.NoError(t, err)

	*cfg.Brackets[0].Upper = d(1)
	cfg.Brackets[0].Rate = decimal.RequireFromString("0.9")

	res, err := calc.Calculate(context.Background(), pit.Input{EmployeeID: "E", GrossIncome: d(13_000_000), Dependents: deps(0)})
	require.NoError(t, err)
	assert.True(t, res.TotalTax.Equal(d(100_000)), res.TotalTax.String())
}
