package repository

import (
	"context"
	"time"

	"taxcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaxRuleRepository is the rule store. ListRules satisfies rules.Repository.
type TaxRuleRepository interface {
	Create(ctx context.Context, rule *model.TaxRule) error
	Update(ctx context.Context, rule *model.TaxRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error)
	List(ctx context.Context, ruleType string, page, limit int) ([]model.TaxRule, int64, error)
	ListRules(ctx context.Context, ruleType string, asOf time.Time) ([]model.TaxRule, error)
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

func (r *taxRuleRepository) Create(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *taxRuleRepository) Update(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *taxRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TaxRule{}).Error
}

func (r *taxRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// List pages through rules, optionally restricted to one rule type.
func (r *taxRuleRepository) List(ctx context.Context, ruleType string, page, limit int) ([]model.TaxRule, int64, error) {
	var rules []model.TaxRule
	var total int64

	query := GetDB(ctx, r.db).Model(&model.TaxRule{})
	if ruleType != "" {
		query = query.Where("rule_type = ?", ruleType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("rule_type, priority, created_at").Offset(offset).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

// ListRules returns the rules of ruleType whose inclusive window contains asOf,
// in evaluation order.
func (r *taxRuleRepository) ListRules(ctx context.Context, ruleType string, asOf time.Time) ([]model.TaxRule, error) {
	day := asOf.Format(time.DateOnly)

	var rules []model.TaxRule
	if err := GetDB(ctx, r.db).
		Where("rule_type = ?", ruleType).
		Where("(effective_from IS NULL OR effective_from <= ?) AND (effective_to IS NULL OR effective_to >= ?)", day, day).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
