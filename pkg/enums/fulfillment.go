package enums

// Well-known order item status names. Statuses live in a lookup table so
// operators can add intermediate states; these are the ones the core relies on.
const (
	FulfillmentPending   = "pending"
	FulfillmentShipped   = "shipped"
	FulfillmentDelivered = "delivered"
	FulfillmentCancelled = "cancelled"
)
