package repository

import (
	"context"
	"time"

	"taxcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExpenseLineRepository interface {
	Create(ctx context.Context, line *model.ExpenseLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ExpenseLine, error)
	ListByPeriod(ctx context.Context, from, to time.Time) ([]model.ExpenseLine, error)
}

type expenseLineRepository struct {
	db *gorm.DB
}

func NewExpenseLineRepository(db *gorm.DB) ExpenseLineRepository {
	return &expenseLineRepository{db: db}
}

func (r *expenseLineRepository) Create(ctx context.Context, line *model.ExpenseLine) error {
	return GetDB(ctx, r.db).Create(line).Error
}

func (r *expenseLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ExpenseLine, error) {
	var line model.ExpenseLine
	if err := GetDB(ctx, r.db).First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// ListByPeriod returns lines booked within [from, to], both days inclusive.
func (r *expenseLineRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]model.ExpenseLine, error) {
	var lines []model.ExpenseLine
	if err := GetDB(ctx, r.db).
		Where("expense_date BETWEEN ? AND ?", from.Format(time.DateOnly), to.Format(time.DateOnly)).
		Order("expense_date ASC, created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}
