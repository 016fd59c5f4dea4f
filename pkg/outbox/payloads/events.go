package payloads

import (
	"github.com/google/uuid"
)

// OrderCreatedEvent asks the routing worker to attach a new order to a
// warehouse and the vendors' fulfillment dashboards.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	OrderCode string    `json:"order_code"`
	UserID    uuid.UUID `json:"user_id"`
}

// PaymentCompletedEvent fans out vendor notifications after a charge settles.
type PaymentCompletedEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	Reference   string    `json:"reference"`
	AmountMinor int64     `json:"amount_minor"`
}

// VendorBankSubmittedEvent triggers asynchronous bank-account verification.
type VendorBankSubmittedEvent struct {
	VendorID     uuid.UUID `json:"vendor_id"`
	BankDetailID uuid.UUID `json:"bank_detail_id"`
}

// VendorVerifiedEvent chains verification into payout-recipient registration.
type VendorVerifiedEvent struct {
	VendorID uuid.UUID `json:"vendor_id"`
}
