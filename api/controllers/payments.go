package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/obiagwu/vendara-backend/api/responses"
	"github.com/obiagwu/vendara-backend/api/validators"
	paymentsvc "github.com/obiagwu/vendara-backend/internal/payments"
	"github.com/obiagwu/vendara-backend/pkg/db/models"
	"github.com/obiagwu/vendara-backend/pkg/enums"
	"github.com/obiagwu/vendara-backend/pkg/logger"
)

type createChargeRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Email   string    `json:"email" validate:"required,email"`
}

type verifyChargeRequest struct {
	Reference string `json:"reference" validate:"required"`
}

type refundRequest struct {
	Reference   string `json:"reference" validate:"required"`
	AmountMinor int64  `json:"amount_minor" validate:"required,min=1"`
	Notes       string `json:"notes"`
}

type paymentResponse struct {
	ID          uuid.UUID           `json:"id"`
	Reference   string              `json:"reference"`
	OrderID     uuid.UUID           `json:"order_id"`
	AmountMinor int64               `json:"amount_minor"`
	Status      enums.PaymentStatus `json:"status"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

type chargeResponse struct {
	Payment          paymentResponse `json:"payment"`
	AuthorizationURL string          `json:"authorization_url"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	return paymentResponse{
		ID:          payment.ID,
		Reference:   payment.Reference,
		OrderID:     payment.OrderID,
		AmountMinor: payment.AmountMinor,
		Status:      payment.Status,
		CompletedAt: payment.CompletedAt,
	}
}

// PaymentCharge opens a gateway checkout for the caller's order.
func PaymentCharge(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrderCharge(r.Context(), userID, payload.OrderID, payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, chargeResponse{
			Payment:          newPaymentResponse(result.Payment),
			AuthorizationURL: result.AuthorizationURL,
		})
	}
}

// PaymentVerify settles a reference against the gateway. Safe to repeat.
func PaymentVerify(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload verifyChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.VerifyCharge(r.Context(), payload.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// PaymentRefund refunds a completed payment, gateway first.
func PaymentRefund(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Refund(r.Context(), payload.Reference, payload.AmountMinor, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}
