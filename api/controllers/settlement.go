package controllers

import (
	"net/http"

	"github.com/obiagwu/vendara-backend/api/responses"
	"github.com/obiagwu/vendara-backend/api/validators"
	settlementsvc "github.com/obiagwu/vendara-backend/internal/settlement"
	"github.com/obiagwu/vendara-backend/pkg/logger"
)

type submitBankDetailRequest struct {
	AccountName   string `json:"account_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,min=10,max=10"`
	BankCode      string `json:"bank_code" validate:"required"`
}

type bankDetailResponse struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Status        string `json:"status"`
}

// SettlementSubmitBankDetail accepts a vendor's payout account claim.
// Verification is asynchronous; the response only confirms the submission.
func SettlementSubmitBankDetail(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := requireVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitBankDetailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.SubmitBankDetail(r.Context(), vendorID, settlementsvc.BankDetailInput{
			AccountName:   payload.AccountName,
			AccountNumber: payload.AccountNumber,
			BankCode:      payload.BankCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, bankDetailResponse{
			AccountName:   detail.AccountName,
			AccountNumber: detail.AccountNumber,
			BankCode:      detail.BankCode,
			Status:        "pending_verification",
		})
	}
}
