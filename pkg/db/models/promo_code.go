package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obiagwu/vendara-backend/pkg/enums"
)

// PromoCode is a vendor-issued discount. PercentOff is a fraction of 100
// (e.g. 10 for 10% off). Scope is either vendor-wide or limited to the
// explicitly attached products.
type PromoCode struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID         uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	Code             string             `gorm:"column:code;not null;uniqueIndex:ux_promo_codes_code"`
	PercentOff       decimal.Decimal    `gorm:"column:percent_off;type:numeric(5,2);not null"`
	Scope            enums.PromoScope   `gorm:"column:scope;type:text;not null;default:'vendor_wide'"`
	ActiveFrom       time.Time          `gorm:"column:active_from;not null"`
	ActiveTo         time.Time          `gorm:"column:active_to;not null"`
	SingleUse        bool               `gorm:"column:single_use;not null;default:false"`
	ConsumedByOrder  *uuid.UUID         `gorm:"column:consumed_by_order;type:uuid"`
	Products         []PromoCodeProduct `gorm:"foreignKey:PromoCodeID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// PromoCodeProduct attaches a product-list promo to a specific product.
type PromoCodeProduct struct {
	PromoCodeID uuid.UUID `gorm:"column:promo_code_id;type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderItemPromo records a promo applied to an order item. The composite
// primary key makes re-application a no-op at the storage layer.
type OrderItemPromo struct {
	OrderItemID   uuid.UUID `gorm:"column:order_item_id;type:uuid;primaryKey"`
	PromoCodeID   uuid.UUID `gorm:"column:promo_code_id;type:uuid;primaryKey"`
	DiscountMinor int64     `gorm:"column:discount_minor;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
