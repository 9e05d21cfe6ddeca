package repository

import (
	"context"
	"time"

	"taxcore/internal/model"
	"taxcore/internal/vat"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseInvoiceRepository stores input invoices. ListTransactions satisfies
// vat.TransactionSource.
type PurchaseInvoiceRepository interface {
	Create(ctx context.Context, invoice *model.PurchaseInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseInvoice, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]model.PurchaseInvoice, error)
	ListTransactions(ctx context.Context, from, to time.Time) ([]vat.Transaction, error)
}

type purchaseInvoiceRepository struct {
	db *gorm.DB
}

func NewPurchaseInvoiceRepository(db *gorm.DB) PurchaseInvoiceRepository {
	return &purchaseInvoiceRepository{db: db}
}

func (r *purchaseInvoiceRepository) Create(ctx context.Context, invoice *model.PurchaseInvoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *purchaseInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseInvoice, error) {
	var invoice model.PurchaseInvoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListByDateRange returns invoices dated within [from, to], both days inclusive.
func (r *purchaseInvoiceRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.PurchaseInvoice, error) {
	var invoices []model.PurchaseInvoice
	if err := GetDB(ctx, r.db).
		Where("invoice_date BETWEEN ? AND ?", from.Format(time.DateOnly), to.Format(time.DateOnly)).
		Order("invoice_date ASC, created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *purchaseInvoiceRepository) ListTransactions(ctx context.Context, from, to time.Time) ([]vat.Transaction, error) {
	invoices, err := r.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	txs := make([]vat.Transaction, 0, len(invoices))
	for _, inv := range invoices {
		txs = append(txs, vat.FromInvoice(inv))
	}
	return txs, nil
}
