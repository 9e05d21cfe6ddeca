package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"taxcore/internal/model"
	"taxcore/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaxService() (service.TaxService, *fakeRuleRepo, *fakeAuditRepo, *fakeTxManager) {
	rules := newFakeRuleRepo()
	audit := &fakeAuditRepo{}
	tx := &fakeTxManager{}
	return service.NewTaxService(rules, audit, tx, nil), rules, audit, tx
}

func cashRuleRequest() service.TaxRuleRequest {
	return service.TaxRuleRequest{
		RuleType:      model.RuleTypeVAT,
		Name:          "Cash at or above 20M",
		Condition:     json.RawMessage(`{"payment_method": "CASH", "amount_gte": 20000000}`),
		Action:        model.ActionReject,
		EffectiveFrom: "2025-01-01",
		Description:   "Non-cash payment required",
	}
}

func TestCreateTaxRule_PersistsAndAudits(t *testing.T) {
	svc, repo, audit, tx := newTaxService()
	userID := uuid.NewString()

	resp, err := svc.CreateTaxRule(context.Background(), cashRuleRequest(), userID)
	require.NoError(t, err)

	assert.Equal(t, model.RuleTypeVAT, resp.RuleType)
	assert.Equal(t, 100, resp.Priority)
	assert.Equal(t, "0", resp.Value)
	require.NotNil(t, resp.EffectiveFrom)
	assert.Equal(t, "2025-01-01", *resp.EffectiveFrom)
	assert.Nil(t, resp.EffectiveTo)
	assert.Equal(t, 1, tx.calls)

	stored, err := repo.FindByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.JSONEq(t, `{"payment_method": "CASH", "amount_gte": 20000000}`, string(stored.Condition))

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, model.ActionCreateTaxRule, entry.Action)
	assert.Equal(t, resp.ID, entry.EntityID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID, entry.UserID.String())
}

func TestCreateTaxRule_EmptyConditionStoredAsEmptyObject(t *testing.T) {
	svc, repo, _, _ := newTaxService()
	req := service.TaxRuleRequest{
		RuleType:  model.RuleTypeCITConfig,
		Name:      "CIT rate",
		ConfigKey: "rate",
		Action:    model.ActionConfigValue,
		Value:     "0.15",
	}

	resp, err := svc.CreateTaxRule(context.Background(), req, "")
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(stored.Condition))
	assert.Equal(t, "0.15", resp.Value)
}

func TestCreateTaxRule_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *service.TaxRuleRequest)
	}{
		{"blank name", func(r *service.TaxRuleRequest) { r.Name = "  " }},
		{"malformed condition", func(r *service.TaxRuleRequest) { r.Condition = json.RawMessage(`{"amount_gte": "lots"}`) }},
		{"unknown condition key", func(r *service.TaxRuleRequest) { r.Condition = json.RawMessage(`{"colour": "red"}`) }},
		{"bad value", func(r *service.TaxRuleRequest) { r.Value = "ten" }},
		{"bad date", func(r *service.TaxRuleRequest) { r.EffectiveFrom = "01/01/2025" }},
		{"window inverted", func(r *service.TaxRuleRequest) { r.EffectiveTo = "2024-12-31" }},
		{"config value on VAT", func(r *service.TaxRuleRequest) {
			r.Action = model.ActionConfigValue
			r.ConfigKey = "cash_threshold"
		}},
		{"config type without CONFIG_VALUE", func(r *service.TaxRuleRequest) { r.RuleType = model.RuleTypeVATConfig }},
		{"config value without key", func(r *service.TaxRuleRequest) {
			r.RuleType = model.RuleTypeVATConfig
			r.Action = model.ActionConfigValue
		}},
		{"VAT partial above one", func(r *service.TaxRuleRequest) {
			r.Action = model.ActionPartial
			r.Value = "1.5"
		}},
		{"CIT partial negative", func(r *service.TaxRuleRequest) {
			r.RuleType = model.RuleTypeCITAddBack
			r.Action = model.ActionPartial
			r.Value = "-1"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, audit, _ := newTaxService()
			req := cashRuleRequest()
			tt.mutate(&req)

			_, err := svc.CreateTaxRule(context.Background(), req, "")
			require.ErrorIs(t, err, service.ErrInvalidRule)
			assert.Empty(t, repo.rules)
			assert.Empty(t, audit.entries)
		})
	}
}

func TestCreateTaxRule_CITPartialCapAboveOneIsAllowed(t *testing.T) {
	svc, _, _, _ := newTaxService()
	req := service.TaxRuleRequest{
		RuleType:  model.RuleTypeCITAddBack,
		Name:      "Per-person entertainment cap",
		Condition: json.RawMessage(`{"category_in": ["ENTERTAINMENT"]}`),
		Action:    model.ActionPartial,
		Value:     "2000000",
	}

	resp, err := svc.CreateTaxRule(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "2000000", resp.Value)
}

func TestUpdateTaxRule(t *testing.T) {
	svc, _, audit, _ := newTaxService()
	ctx := context.Background()

	created, err := svc.CreateTaxRule(ctx, cashRuleRequest(), "")
	require.NoError(t, err)

	req := cashRuleRequest()
	req.Action = model.ActionWarn
	priority := 10
	req.Priority = &priority
	req.EffectiveTo = "2025-12-31"

	updated, err := svc.UpdateTaxRule(ctx, created.ID, req, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, model.ActionWarn, updated.Action)
	assert.Equal(t, 10, updated.Priority)
	require.NotNil(t, updated.EffectiveTo)
	assert.Equal(t, "2025-12-31", *updated.EffectiveTo)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, model.ActionUpdateTaxRule, audit.entries[1].Action)
	assert.Nil(t, audit.entries[1].UserID)
}

func TestUpdateTaxRule_Errors(t *testing.T) {
	svc, _, _, _ := newTaxService()
	ctx := context.Background()

	_, err := svc.UpdateTaxRule(ctx, "not-a-uuid", cashRuleRequest(), "")
	assert.ErrorIs(t, err, service.ErrInvalidRule)

	_, err = svc.UpdateTaxRule(ctx, uuid.NewString(), cashRuleRequest(), "")
	assert.ErrorIs(t, err, service.ErrRuleNotFound)
}

func TestDeleteTaxRule(t *testing.T) {
	svc, repo, audit, _ := newTaxService()
	ctx := context.Background()

	created, err := svc.CreateTaxRule(ctx, cashRuleRequest(), "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTaxRule(ctx, created.ID, ""))
	assert.Empty(t, repo.rules)
	require.Len(t, audit.entries, 2)
	assert.Equal(t, model.ActionDeleteTaxRule, audit.entries[1].Action)

	_, err = svc.GetTaxRule(ctx, created.ID)
	assert.ErrorIs(t, err, service.ErrRuleNotFound)
	assert.ErrorIs(t, svc.DeleteTaxRule(ctx, created.ID, ""), service.ErrRuleNotFound)
}

func TestCreateTaxRule_AuditFailureFailsTheWrite(t *testing.T) {
	svc, _, audit, _ := newTaxService()
	audit.err = errStore

	_, err := svc.CreateTaxRule(context.Background(), cashRuleRequest(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errStore)
}

func TestListTaxRules_FiltersByType(t *testing.T) {
	svc, _, _, _ := newTaxService()
	ctx := context.Background()

	_, err := svc.CreateTaxRule(ctx, cashRuleRequest(), "")
	require.NoError(t, err)
	_, err = svc.CreateTaxRule(ctx, service.TaxRuleRequest{
		RuleType:  model.RuleTypePITConfig,
		Name:      "Self deduction 2026",
		ConfigKey: "self_deduction",
		Action:    model.ActionConfigValue,
		Value:     "15500000",
	}, "")
	require.NoError(t, err)

	all, total, err := svc.ListTaxRules(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	pitOnly, total, err := svc.ListTaxRules(ctx, model.RuleTypePITConfig, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, pitOnly, 1)
	assert.Equal(t, "self_deduction", pitOnly[0].ConfigKey)
}
