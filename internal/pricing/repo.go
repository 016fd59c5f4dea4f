package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/obiagwu/vendara-backend/pkg/db/models"
)

// Repository persists promo applications and loads pricing inputs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveForVendors(ctx context.Context, vendorIDs []uuid.UUID, at time.Time) ([]models.PromoCode, error)
	LoadOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ApplyToOrderItem(ctx context.Context, rec models.OrderItemPromo) error
	MarkConsumed(ctx context.Context, promoID, orderID uuid.UUID) (bool, error)
	SumDiscountsForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pricing repository backed by the provided DB.
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

func (r *repository) FindActiveForVendors(ctx context.Context, vendorIDs []uuid.UUID, at time.Time) ([]models.PromoCode, error) {
	if len(vendorIDs) == 0 {
		return nil, nil
	}
	var promos []models.PromoCode
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("vendor_id IN ?", vendorIDs).
		Where("active_from <= ? AND active_to >= ?", at, at).
		Find(&promos).Error
	if err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repository) LoadOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("SellingUnit").
		Where("order_id = ?", orderID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ApplyToOrderItem records one promo application. The composite primary key
// turns a repeat application into a no-op.
func (r *repository) ApplyToOrderItem(ctx context.Context, rec models.OrderItemPromo) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}

// MarkConsumed claims a single-use promo for the order. Returns false when a
// different order already consumed it.
func (r *repository) MarkConsumed(ctx context.Context, promoID, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ? AND (consumed_by_order IS NULL OR consumed_by_order = ?)", promoID, orderID).
		Update("consumed_by_order", orderID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SumDiscountsForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItemPromo{}).
		Joins("JOIN order_items ON order_items.id = order_item_promos.order_item_id").
		Where("order_items.order_id = ?", orderID).
		Select("COALESCE(SUM(order_item_promos.discount_minor), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
