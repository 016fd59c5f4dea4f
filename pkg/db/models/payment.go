package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/obiagwu/vendara-backend/pkg/enums"
)

// Payment is the gateway-backed charge tied 1:1 to an order. Reference is the
// internal charge reference handed to the gateway; GatewayRef is the checkout
// reference the gateway returned. All amounts are minor units.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference   string              `gorm:"column:reference;not null;uniqueIndex:ux_payments_reference"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payments_order_id"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	AmountMinor int64               `gorm:"column:amount_minor;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayRef  *string             `gorm:"column:gateway_ref"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Refund records a successful gateway refund against a payment. Rows exist
// only after the gateway confirmed; a failed refund leaves no trace.
type Refund struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID     uuid.UUID `gorm:"column:payment_id;type:uuid;not null;index"`
	AmountMinor   int64     `gorm:"column:amount_minor;not null"`
	DeductedMinor int64     `gorm:"column:deducted_minor;not null"`
	Notes         *string   `gorm:"column:notes"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// SavedCard stores a reusable authorization captured during charge
// verification when the customer opted in. Signature deduplicates the same
// physical card per user.
type SavedCard struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_saved_cards_user_signature"`
	Signature         string    `gorm:"column:signature;not null;uniqueIndex:ux_saved_cards_user_signature"`
	AuthorizationCode string    `gorm:"column:authorization_code;not null"`
	CardType          string    `gorm:"column:card_type;not null"`
	Last4             string    `gorm:"column:last4;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}
