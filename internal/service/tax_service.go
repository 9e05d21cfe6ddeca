package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taxcore/internal/condition"
	"taxcore/internal/model"
	"taxcore/internal/repository"
	"taxcore/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrRuleNotFound = errors.New("tax rule not found")
	ErrInvalidRule  = errors.New("invalid tax rule")
)

const defaultRulePriority = 100

// --- DTOs ---

type TaxRuleRequest struct {
	RuleType      string          `json:"rule_type" binding:"required,oneof=VAT VAT_CONFIG CIT_ADDBACK CIT_CONFIG PIT_CONFIG"`
	Name          string          `json:"name" binding:"required"`
	ConfigKey     string          `json:"config_key"`
	Condition     json.RawMessage `json:"condition" swaggertype:"object"`
	Action        string          `json:"action" binding:"required,oneof=REJECT PARTIAL WARN CONFIG_VALUE"`
	Value         string          `json:"value"`          // Decimal string, e.g. "0.5" or "1000000"
	EffectiveFrom string          `json:"effective_from"` // YYYY-MM-DD, nullable
	EffectiveTo   string          `json:"effective_to"`   // YYYY-MM-DD, nullable
	Priority      *int            `json:"priority"`       // Defaults to 100
	Description   string          `json:"description"`
}

type TaxRuleResponse struct {
	ID            string          `json:"id"`
	RuleType      string          `json:"rule_type"`
	Name          string          `json:"name"`
	ConfigKey     string          `json:"config_key,omitempty"`
	Condition     json.RawMessage `json:"condition" swaggertype:"object"`
	Action        string          `json:"action"`
	Value         string          `json:"value"`
	EffectiveFrom *string         `json:"effective_from"`
	EffectiveTo   *string         `json:"effective_to"`
	Priority      int             `json:"priority"`
	Description   string          `json:"description"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// --- Interface ---

type TaxService interface {
	ListTaxRules(ctx context.Context, ruleType string, page, limit int) ([]TaxRuleResponse, int64, error)
	GetTaxRule(ctx context.Context, id string) (TaxRuleResponse, error)
	CreateTaxRule(ctx context.Context, req TaxRuleRequest, userID string) (TaxRuleResponse, error)
	UpdateTaxRule(ctx context.Context, id string, req TaxRuleRequest, userID string) (TaxRuleResponse, error)
	DeleteTaxRule(ctx context.Context, id string, userID string) error
}

type taxService struct {
	ruleRepo  repository.TaxRuleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	logger    *zap.Logger
}

func NewTaxService(
	ruleRepo repository.TaxRuleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log *zap.Logger,
) TaxService {
	return &taxService{
		ruleRepo:  ruleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		logger:    logger.OrNop(log),
	}
}

// --- Implementation ---

func (s *taxService) ListTaxRules(ctx context.Context, ruleType string, page, limit int) ([]TaxRuleResponse, int64, error) {
	rules, total, err := s.ruleRepo.List(ctx, ruleType, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, total, nil
}

func (s *taxService) GetTaxRule(ctx context.Context, id string) (TaxRuleResponse, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	return toTaxRuleResponse(*rule), nil
}

func (s *taxService) CreateTaxRule(ctx context.Context, req TaxRuleRequest, userID string) (TaxRuleResponse, error) {
	rule, err := buildTaxRule(req)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.ruleRepo.Create(txCtx, &rule); createErr != nil {
			return fmt.Errorf("failed to create tax rule: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionCreateTaxRule, rule, req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	s.logger.Info("tax rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("rule_type", rule.RuleType),
		zap.String("action", rule.Action))
	return toTaxRuleResponse(rule), nil
}

func (s *taxService) UpdateTaxRule(ctx context.Context, id string, req TaxRuleRequest, userID string) (TaxRuleResponse, error) {
	existing, err := s.findRule(ctx, id)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule, err := buildTaxRule(req)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.ruleRepo.Update(txCtx, &rule); saveErr != nil {
			return fmt.Errorf("failed to update tax rule: %w", saveErr)
		}
		return s.audit(txCtx, userID, model.ActionUpdateTaxRule, rule, req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	s.logger.Info("tax rule updated", zap.String("rule_id", rule.ID.String()))
	return toTaxRuleResponse(rule), nil
}

func (s *taxService) DeleteTaxRule(ctx context.Context, id string, userID string) error {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.ruleRepo.Delete(txCtx, rule.ID); delErr != nil {
			return fmt.Errorf("failed to delete tax rule: %w", delErr)
		}
		return s.audit(txCtx, userID, model.ActionDeleteTaxRule, *rule, map[string]string{"deleted_id": rule.ID.String()})
	})
	if err != nil {
		return err
	}

	s.logger.Info("tax rule deleted", zap.String("rule_id", rule.ID.String()))
	return nil
}

// --- Helpers ---

func (s *taxService) findRule(ctx context.Context, id string) (*model.TaxRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tax rule id", ErrInvalidRule)
	}

	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to fetch tax rule: %w", err)
	}
	return rule, nil
}

func (s *taxService) audit(ctx context.Context, userID, action string, rule model.TaxRule, details interface{}) error {
	entry := newAuditEntry(userID, action, rule.ID.String(), rule.RuleType+" "+rule.Name, details)
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write tax rule audit log: %w", err)
	}
	return nil
}

// buildTaxRule validates a request against what the engine can evaluate.
// A rule that would never parse at evaluation time is refused here.
func buildTaxRule(req TaxRuleRequest) (model.TaxRule, error) {
	rule := model.TaxRule{
		RuleType:    req.RuleType,
		Name:        strings.TrimSpace(req.Name),
		ConfigKey:   strings.TrimSpace(req.ConfigKey),
		Action:      req.Action,
		Priority:    defaultRulePriority,
		Description: req.Description,
		Value:       decimal.Zero,
	}
	if rule.Name == "" {
		return model.TaxRule{}, fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}

	if _, err := condition.Parse(req.Condition); err != nil {
		return model.TaxRule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	rule.Condition = req.Condition
	if len(strings.TrimSpace(string(rule.Condition))) == 0 {
		rule.Condition = json.RawMessage(`{}`)
	}

	if req.Value != "" {
		v, err := decimal.NewFromString(req.Value)
		if err != nil {
			return model.TaxRule{}, fmt.Errorf("%w: invalid value %q", ErrInvalidRule, req.Value)
		}
		rule.Value = v
	}

	isConfigType := strings.HasSuffix(rule.RuleType, "_CONFIG")
	switch {
	case rule.Action == model.ActionConfigValue && !isConfigType:
		return model.TaxRule{}, fmt.Errorf("%w: CONFIG_VALUE is only valid for *_CONFIG rule types", ErrInvalidRule)
	case isConfigType && rule.Action != model.ActionConfigValue:
		return model.TaxRule{}, fmt.Errorf("%w: %s rules must use CONFIG_VALUE", ErrInvalidRule, rule.RuleType)
	case rule.Action == model.ActionConfigValue && rule.ConfigKey == "":
		return model.TaxRule{}, fmt.Errorf("%w: config_key is required for CONFIG_VALUE", ErrInvalidRule)
	}

	if rule.Action == model.ActionPartial {
		if rule.Value.IsNegative() {
			return model.TaxRule{}, fmt.Errorf("%w: PARTIAL value must not be negative", ErrInvalidRule)
		}
		if rule.RuleType == model.RuleTypeVAT && rule.Value.GreaterThan(decimal.NewFromInt(1)) {
			return model.TaxRule{}, fmt.Errorf("%w: VAT PARTIAL value is a fraction between 0 and 1", ErrInvalidRule)
		}
	}

	from, err := parseOptionalDate("effective_from", req.EffectiveFrom)
	if err != nil {
		return model.TaxRule{}, err
	}
	to, err := parseOptionalDate("effective_to", req.EffectiveTo)
	if err != nil {
		return model.TaxRule{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return model.TaxRule{}, fmt.Errorf("%w: effective_to is before effective_from", ErrInvalidRule)
	}
	rule.EffectiveFrom = from
	rule.EffectiveTo = to

	return rule, nil
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s date format (expected YYYY-MM-DD)", ErrInvalidRule, field)
	}
	return &t, nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:          r.ID.String(),
		RuleType:    r.RuleType,
		Name:        r.Name,
		ConfigKey:   r.ConfigKey,
		Condition:   r.Condition,
		Action:      r.Action,
		Value:       r.Value.String(),
		Priority:    r.Priority,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
	if r.EffectiveFrom != nil {
		s := r.EffectiveFrom.Format(time.DateOnly)
		resp.EffectiveFrom = &s
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format(time.DateOnly)
		resp.EffectiveTo = &s
	}
	return resp
}
