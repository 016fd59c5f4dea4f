package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/obiagwu/vendara-backend/api/responses"
	"github.com/obiagwu/vendara-backend/api/validators"
	ordersvc "github.com/obiagwu/vendara-backend/internal/orders"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/logger"
)

type createOrderRequest struct {
	CartItemIDs    []uuid.UUID `json:"cart_item_ids" validate:"required,min=1"`
	AddressID      uuid.UUID   `json:"address_id" validate:"required"`
	DeliveryModeID uuid.UUID   `json:"delivery_mode_id" validate:"required"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    int       `json:"quantity"`
	TrackingID  string    `json:"tracking_id"`
}

type orderResponse struct {
	ID        uuid.UUID           `json:"id"`
	Code      string              `json:"code"`
	Completed bool                `json:"completed"`
	Items     []orderItemResponse `json:"items"`
	CreatedAt time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:        order.ID,
		Code:      order.Code,
		Completed: order.Completed,
		CreatedAt: order.CreatedAt,
		Items:     make([]orderItemResponse, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		out := orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			TrackingID: item.TrackingID,
		}
		if item.Product != nil {
			out.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, out)
	}
	return resp
}

// OrderCreate converts the referenced cart items into an order.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), userID, ordersvc.CreateOrderInput{
			CartItemIDs:    payload.CartItemIDs,
			AddressID:      payload.AddressID,
			DeliveryModeID: payload.DeliveryModeID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrderGet returns one of the caller's orders.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
