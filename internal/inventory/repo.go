package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
)

// Repository owns all mutations of selling-unit stock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetSellingUnit(ctx context.Context, id uuid.UUID) (*models.SellingUnit, error)
	Reserve(ctx context.Context, sellingUnitID uuid.UUID, qty int) error
	Release(ctx context.Context, sellingUnitID uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetSellingUnit(ctx context.Context, id uuid.UUID) (*models.SellingUnit, error) {
	var unit models.SellingUnit
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", id).
		First(&unit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "selling unit not found")
		}
		return nil, err
	}
	return &unit, nil
}

// Reserve decrements stock with a guarded update so the size column can never
// go negative, regardless of concurrent reservations.
func (r *repository) Reserve(ctx context.Context, sellingUnitID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.SellingUnit{}).
		Where("id = ? AND size >= ?", sellingUnitID, qty).
		UpdateColumn("size", gorm.Expr("size - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.SellingUnit{}).
			Where("id = ?", sellingUnitID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "selling unit not found")
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to reserve")
	}
	return nil
}

// Release returns previously reserved stock.
func (r *repository) Release(ctx context.Context, sellingUnitID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.SellingUnit{}).
		Where("id = ?", sellingUnitID).
		UpdateColumn("size", gorm.Expr("size + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "selling unit not found")
	}
	return nil
}
