package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry owned by a vendor. Stock and price live on the
// product's selling units, never on the product itself.
type Product struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID     uuid.UUID     `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name         string        `gorm:"column:name;not null"`
	Description  *string       `gorm:"column:description"`
	IsActive     bool          `gorm:"column:is_active;not null;default:true"`
	SellingUnits []SellingUnit `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Vendor       *Vendor       `gorm:"foreignKey:VendorID"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// SellingUnit is a purchasable (product, measuring-unit) pairing with its own
// remaining stock and price. Size is mutated only through the inventory
// ledger's compare-and-decrement operations.
type SellingUnit struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_selling_units_product_unit"`
	Unit       string    `gorm:"column:unit;not null;uniqueIndex:ux_selling_units_product_unit"`
	Size       int       `gorm:"column:size;not null;default:0"`
	PriceMinor int64     `gorm:"column:price_minor;not null"`
	Product    *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
