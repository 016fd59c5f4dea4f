package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a user's pending selection and a live stock reservation: its
// quantity has already been decremented from the selling unit's size. Deleted
// on explicit removal or when the reservation transfers to an order item.
type CartItem struct {
	ID            uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID    `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID     uuid.UUID    `gorm:"column:product_id;type:uuid;not null"`
	SellingUnitID uuid.UUID    `gorm:"column:selling_unit_id;type:uuid;not null"`
	Quantity      int          `gorm:"column:quantity;not null"`
	Product       *Product     `gorm:"foreignKey:ProductID"`
	SellingUnit   *SellingUnit `gorm:"foreignKey:SellingUnitID"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
