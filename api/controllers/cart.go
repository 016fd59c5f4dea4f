package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/obiagwu/vendara-backend/api/responses"
	"github.com/obiagwu/vendara-backend/api/validators"
	cartsvc "github.com/obiagwu/vendara-backend/internal/cart"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/logger"
	"github.com/obiagwu/vendara-backend/pkg/pagination"
	"github.com/obiagwu/vendara-backend/pkg/types"
)

type addCartItemRequest struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	SellingUnitID uuid.UUID `json:"selling_unit_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type cartItemResponse struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name,omitempty"`
	SellingUnitID uuid.UUID `json:"selling_unit_id"`
	Unit          string    `json:"unit,omitempty"`
	Quantity      int       `json:"quantity"`
	PriceMinor    int64     `json:"price_minor,omitempty"`
}

func newCartItemResponse(item *models.CartItem) cartItemResponse {
	resp := cartItemResponse{
		ID:            item.ID,
		ProductID:     item.ProductID,
		SellingUnitID: item.SellingUnitID,
		Quantity:      item.Quantity,
	}
	if item.Product != nil {
		resp.ProductName = item.Product.Name
	}
	if item.SellingUnit != nil {
		resp.Unit = item.SellingUnit.Unit
		resp.PriceMinor = item.SellingUnit.PriceMinor
	}
	return resp
}

// CartAdd reserves stock and places a selling unit in the caller's cart.
func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), userID, cartsvc.CreateItemInput{
			ProductID:     payload.ProductID,
			SellingUnitID: payload.SellingUnitID,
			Quantity:      payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartItemResponse(item))
	}
}

// CartUpdate changes an item's quantity, adjusting its reservation by the delta.
func CartUpdate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemID"), "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), userID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartItemResponse(item))
	}
}

// CartRemove releases the item's reservation and deletes the row.
func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemID"), "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CartList returns the caller's cart, filterable by product name.
func CartList(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := cartsvc.ListFilter{ProductName: r.URL.Query().Get("product_name")}
		params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}

		items, nextCursor, err := svc.List(r.Context(), userID, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := types.Page[cartItemResponse]{NextCursor: nextCursor, Items: make([]cartItemResponse, 0, len(items))}
		for i := range items {
			page.Items = append(page.Items, newCartItemResponse(&items[i]))
		}
		responses.WriteSuccess(w, page)
	}
}
