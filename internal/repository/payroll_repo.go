package repository

import (
	"context"

	"taxcore/internal/model"

	"gorm.io/gorm"
)

type PayrollRepository interface {
	Create(ctx context.Context, entry *model.PayrollEntry) error
	ListByPeriod(ctx context.Context, period string) ([]model.PayrollEntry, error)
}

type payrollRepository struct {
	db *gorm.DB
}

func NewPayrollRepository(db *gorm.DB) PayrollRepository {
	return &payrollRepository{db: db}
}

func (r *payrollRepository) Create(ctx context.Context, entry *model.PayrollEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// ListByPeriod returns every payroll row of a YYYY-MM period.
func (r *payrollRepository) ListByPeriod(ctx context.Context, period string) ([]model.PayrollEntry, error) {
	var entries []model.PayrollEntry
	if err := GetDB(ctx, r.db).
		Where("period = ?", period).
		Order("employee_id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
