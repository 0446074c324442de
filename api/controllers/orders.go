package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartzfindery/storefront-backend/api/middleware"
	"github.com/smartzfindery/storefront-backend/api/responses"
	"github.com/smartzfindery/storefront-backend/api/validators"
	ordersvc "github.com/smartzfindery/storefront-backend/internal/orders"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/logger"
	"github.com/smartzfindery/storefront-backend/pkg/pagination"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

type orderCreateRequest struct {
	UserID          *string               `json:"userId,omitempty"`
	CustomerDetails types.CustomerDetails `json:"customerDetails"`
	Items           []types.LineItem      `json:"items"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	VATTotal        decimal.Decimal       `json:"vatTotal"`
	Total           decimal.Decimal       `json:"total"`
	PaymentMethod   string                `json:"paymentMethod,omitempty"`
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderCreate snapshots the submitted cart into a pending order. The
// breakdown in the body is stored as submitted.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var body orderCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ordersvc.CreateOrderInput{
			CustomerDetails: body.CustomerDetails,
			Items:           body.Items,
			Subtotal:        body.Subtotal,
			VATTotal:        body.VATTotal,
			Total:           body.Total,
			PaymentMethod:   enums.PaymentMethod(body.PaymentMethod),
		}

		// Prefer the authenticated identity over whatever the body claims.
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			uid, err := uuid.Parse(userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
				return
			}
			input.UserID = &uid
		} else if body.UserID != nil && *body.UserID != "" {
			uid, err := uuid.Parse(*body.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
				return
			}
			input.UserID = &uid
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderDetail serves one order. Guests can look up any order by id; a
// logged-in customer can only see their own unless they are an admin.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		role := middleware.RoleFromContext(r.Context())
		if userID != "" && role != string(enums.UserRoleAdmin) &&
			order.UserID != nil && order.UserID.String() != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account"))
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderListMine serves the authenticated customer's order history.
func OrderListMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		uid, err := uuid.Parse(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		rows, err := svc.ListUserOrders(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"orders": rows})
	}
}

// OrderListForUser serves one user's order history by id. A customer can
// only read their own history; admins can read anyone's.
func OrderListForUser(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		uid, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		callerID := middleware.UserIDFromContext(r.Context())
		role := middleware.RoleFromContext(r.Context())
		if role != string(enums.UserRoleAdmin) && callerID != uid.String() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "orders belong to another account"))
			return
		}

		rows, err := svc.ListUserOrders(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"orders": rows})
	}
}

// OrderListAll serves the paginated admin order listing.
func OrderListAll(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListOrders(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// OrderUpdateStatus moves an order between lifecycle states.
func OrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
