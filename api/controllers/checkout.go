package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/smartzfindery/storefront-backend/api/middleware"
	"github.com/smartzfindery/storefront-backend/api/responses"
	"github.com/smartzfindery/storefront-backend/api/validators"
	checkoutsvc "github.com/smartzfindery/storefront-backend/internal/checkout"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/logger"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

type checkoutDetailsRequest struct {
	CustomerDetails types.CustomerDetails `json:"customerDetails"`
	DiscountCode    string                `json:"discountCode,omitempty"`
	PaymentMethod   string                `json:"paymentMethod,omitempty"`
}

// CheckoutState reports where the owner's checkout currently stands.
func CheckoutState(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := checkoutFlow(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, flow.Progress())
	}
}

// CheckoutDetails submits customer details and advances to payment.
func CheckoutDetails(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := checkoutFlow(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutDetailsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.DetailsInput{
			CustomerDetails: body.CustomerDetails,
			DiscountCode:    body.DiscountCode,
			PaymentMethod:   enums.PaymentMethod(body.PaymentMethod),
		}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			uid, err := uuid.Parse(userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
				return
			}
			input.UserID = &uid
		}

		progress, err := flow.SubmitDetails(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, progress)
	}
}

// CheckoutEdit steps the flow back to the details form.
func CheckoutEdit(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := checkoutFlow(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		progress, err := flow.EditDetails()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, progress)
	}
}

// CheckoutConfirm verifies the payment with the gateway and, on success,
// completes the flow and clears the cart.
func CheckoutConfirm(mgr *checkoutsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := checkoutFlow(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		progress, err := flow.CompletePayment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, progress)
	}
}

func checkoutFlow(mgr *checkoutsvc.Manager, r *http.Request) (*checkoutsvc.Flow, error) {
	if mgr == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable")
	}
	owner, err := cartOwner(r)
	if err != nil {
		return nil, err
	}
	return mgr.FlowFor(owner)
}
