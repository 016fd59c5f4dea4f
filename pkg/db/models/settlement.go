package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorBankDetail is a vendor's claimed payout account, pending verification
// against the bank-resolution collaborator.
type VendorBankDetail struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_vendor_bank_details_vendor"`
	AccountName   string    `gorm:"column:account_name;not null"`
	AccountNumber string    `gorm:"column:account_number;not null"`
	BankCode      string    `gorm:"column:bank_code;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// VendorVerification records the outcome of matching the claimed account name
// against the bank-resolved name.
type VendorVerification struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID            uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_vendor_verifications_vendor"`
	IsVerified          bool      `gorm:"column:is_verified;not null;default:false"`
	ResolvedAccountName *string   `gorm:"column:resolved_account_name"`
	Note                *string   `gorm:"column:note"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Recipient is the payout destination registered with the external processor.
// At most one active recipient exists per vendor; replacements invalidate the
// prior row before a new one is stored.
type Recipient struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`
	RecipientCode string    `gorm:"column:recipient_code;not null"`
	Active        bool      `gorm:"column:active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
