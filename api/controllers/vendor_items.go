package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/obiagwu/vendara-backend/api/responses"
	warehousesvc "github.com/obiagwu/vendara-backend/internal/warehouse"
	"github.com/obiagwu/vendara-backend/pkg/logger"
)

type vendorOrderItemResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	RoutedAt    time.Time `json:"routed_at"`
}

// VendorOrderItemList returns the items routed to the vendor's dashboard.
func VendorOrderItemList(svc warehousesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := requireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListVendorItems(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]vendorOrderItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, vendorOrderItemResponse{
				OrderID:     item.OrderID,
				OrderItemID: item.OrderItemID,
				RoutedAt:    item.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
