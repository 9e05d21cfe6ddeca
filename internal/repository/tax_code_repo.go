package repository

import (
	"context"
	"errors"

	"taxcore/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaxCodeRepository caches registry results and manual entries. It satisfies taxcode.Store.
type TaxCodeRepository interface {
	Get(ctx context.Context, taxCode string) (*model.TaxCodeRecord, error)
	Save(ctx context.Context, rec *model.TaxCodeRecord) error
}

type taxCodeRepository struct {
	db *gorm.DB
}

func NewTaxCodeRepository(db *gorm.DB) TaxCodeRepository {
	return &taxCodeRepository{db: db}
}

// Get returns nil, nil for an unknown code.
func (r *taxCodeRepository) Get(ctx context.Context, taxCode string) (*model.TaxCodeRecord, error) {
	var rec model.TaxCodeRecord
	err := GetDB(ctx, r.db).First(&rec, "tax_code = ?", taxCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save upserts by tax code. A live result never replaces a manual entry.
func (r *taxCodeRepository) Save(ctx context.Context, rec *model.TaxCodeRecord) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tax_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "short_name", "address", "source", "fetched_at", "updated_at"}),
	}
	if rec.Source != model.SourceManual {
		onConflict.Where = clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: clause.Column{Table: "tax_code_records", Name: "source"}, Value: model.SourceManual},
		}}
	}
	return GetDB(ctx, r.db).Clauses(onConflict).Create(rec).Error
}
