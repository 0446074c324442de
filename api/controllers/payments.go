package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/smartzfindery/storefront-backend/api/responses"
	"github.com/smartzfindery/storefront-backend/api/validators"
	paymentsvc "github.com/smartzfindery/storefront-backend/internal/payments"
	"github.com/smartzfindery/storefront-backend/pkg/db/models"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/logger"
)

type createIntentRequest struct {
	OrderID string `json:"orderId" validate:"required"`

	// Amount and currency are accepted for wire compatibility but the
	// charge is always derived from the stored order total.
	Amount   string `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	OrderID         string `json:"orderId" validate:"required"`
}

type confirmPaymentResponse struct {
	Success bool          `json:"success"`
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Order   *models.Order `json:"order,omitempty"`
}

// PaymentCreateIntent opens a gateway payment intent for an order.
func PaymentCreateIntent(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var body createIntentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		handle, err := svc.BeginPayment(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, handle)
	}
}

// PaymentConfirm checks the gateway verdict for an intent and finalizes
// the order when the gateway reports success.
func PaymentConfirm(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var body confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(body.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		result, err := svc.ConfirmPayment(r.Context(), body.PaymentIntentID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !result.Paid {
			responses.WriteRaw(w, http.StatusOK, confirmPaymentResponse{
				Success: false,
				Status:  result.GatewayStatus,
				Message: "payment not completed",
				Order:   result.Order,
			})
			return
		}

		responses.WriteRaw(w, http.StatusOK, confirmPaymentResponse{
			Success: true,
			Status:  string(enums.OrderStatusPaid),
			Order:   result.Order,
		})
	}
}
