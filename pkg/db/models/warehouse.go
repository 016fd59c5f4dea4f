package models

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a fulfillment location serving one shipping state.
type Warehouse struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	State     string    `gorm:"column:state;not null;uniqueIndex:ux_warehouses_state"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// VendorOrderItem attaches an order item to its vendor's fulfillment
// dashboard. The composite key makes the routing consumer's attach idempotent.
type VendorOrderItem struct {
	VendorID    uuid.UUID `gorm:"column:vendor_id;type:uuid;primaryKey"`
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
