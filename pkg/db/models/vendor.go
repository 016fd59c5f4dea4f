package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a selling party on the marketplace. Staff/permission data lives
// outside the core; only the fields settlement and routing need are kept.
type Vendor struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
