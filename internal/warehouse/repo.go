package warehouse

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
)

// Repository resolves fulfillment locations and vendor dashboard rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByState(ctx context.Context, state string) (*models.Warehouse, error)
	AssignOrder(ctx context.Context, orderID, warehouseID uuid.UUID) error
	AttachVendorItems(ctx context.Context, rows []models.VendorOrderItem) error
	ListVendorItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorOrderItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a warehouse repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// FindByState returns (nil, nil) when no warehouse serves the state.
func (r *repository) FindByState(ctx context.Context, state string) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := r.db.WithContext(ctx).
		Where("LOWER(state) = LOWER(?)", state).
		First(&warehouse).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &warehouse, nil
}

func (r *repository) AssignOrder(ctx context.Context, orderID, warehouseID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("warehouse_id", warehouseID).Error
}

// AttachVendorItems is idempotent on the (vendor, order item) composite key.
func (r *repository) AttachVendorItems(ctx context.Context, rows []models.VendorOrderItem) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *repository) ListVendorItems(ctx context.Context, vendorID uuid.UUID) ([]models.VendorOrderItem, error) {
	var rows []models.VendorOrderItem
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
