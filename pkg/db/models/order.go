package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a customer shipping destination. Address CRUD lives outside the
// core; ownership is re-checked before an order may reference one.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Street    string    `gorm:"column:street;not null"`
	City      string    `gorm:"column:city;not null"`
	State     string    `gorm:"column:state;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// DeliveryMode is a fulfillment option (e.g. pickup, door delivery).
type DeliveryMode struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:ux_delivery_modes_name"`
	FeeMinor  int64     `gorm:"column:fee_minor;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Order is the immutable result of converting cart items at checkout. It has
// at most one Payment and is attached to a warehouse asynchronously.
type Order struct {
	ID             uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string        `gorm:"column:code;not null;uniqueIndex:ux_orders_code"`
	UserID         uuid.UUID     `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID      uuid.UUID     `gorm:"column:address_id;type:uuid;not null"`
	DeliveryModeID uuid.UUID     `gorm:"column:delivery_mode_id;type:uuid;not null"`
	WarehouseID    *uuid.UUID    `gorm:"column:warehouse_id;type:uuid"`
	Completed      bool          `gorm:"column:completed;not null;default:false"`
	Items          []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment        *Payment      `gorm:"foreignKey:OrderID"`
	Address        *Address      `gorm:"foreignKey:AddressID"`
	DeliveryMode   *DeliveryMode `gorm:"foreignKey:DeliveryModeID"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItemStatus is a lookup row for fulfillment states; the initial
// "pending" row is get-or-created during order assembly.
type OrderItemStatus struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:ux_order_item_statuses_name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderItem snapshots one cart item at assembly time. The stock reservation
// held by the source cart item transfers here; no re-reservation occurs.
type OrderItem struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID     uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	SellingUnitID uuid.UUID        `gorm:"column:selling_unit_id;type:uuid;not null"`
	Quantity      int              `gorm:"column:quantity;not null"`
	TrackingID    string           `gorm:"column:tracking_id;not null;uniqueIndex:ux_order_items_tracking_id"`
	StatusID      uuid.UUID        `gorm:"column:status_id;type:uuid;not null"`
	Status        *OrderItemStatus `gorm:"foreignKey:StatusID"`
	Product       *Product         `gorm:"foreignKey:ProductID"`
	SellingUnit   *SellingUnit     `gorm:"foreignKey:SellingUnitID"`
	Promos        []PromoCode      `gorm:"many2many:order_item_promos;joinForeignKey:OrderItemID;joinReferences:PromoCodeID"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
