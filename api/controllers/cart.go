package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/smartzfindery/storefront-backend/api/middleware"
	"github.com/smartzfindery/storefront-backend/api/responses"
	"github.com/smartzfindery/storefront-backend/api/validators"
	cartsvc "github.com/smartzfindery/storefront-backend/internal/cart"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/logger"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

const guestIDHeader = "X-Guest-ID"

type cartAddRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Price     string `json:"price" validate:"required"`
	Image     string `json:"image,omitempty"`
	HasVAT    bool   `json:"hasVat"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartDiscountRequest struct {
	Code string `json:"code"`
}

// cartOwner resolves who the cart belongs to: the authenticated user, or
// the guest id the client generated and carries in a header.
func cartOwner(r *http.Request) (string, error) {
	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		return userID, nil
	}
	if guestID := strings.TrimSpace(r.Header.Get(guestIDHeader)); guestID != "" {
		return guestID, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "missing cart owner; log in or send "+guestIDHeader)
}

// CartFetch serves the owner's current cart priced with its discount code.
func CartFetch(store cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := store.Quote(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

// CartApplyDiscount sets the cart's discount code, replacing any previous
// one, and returns the re-priced quote. An empty code removes the discount.
func CartApplyDiscount(store cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartDiscountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := store.SetDiscountCode(r.Context(), owner, body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

// CartAdd puts a product in the cart, bumping the quantity when it is
// already there.
func CartAdd(store cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartAddRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseDecimalField(body.Price, "price")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := store.Add(r.Context(), owner, types.LineItem{
			ProductID: body.ProductID,
			Name:      body.Name,
			Price:     price,
			Image:     body.Image,
			HasVAT:    body.HasVAT,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// CartUpdateQuantity sets the quantity for one line. Zero or below removes it.
func CartUpdateQuantity(store cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		var body cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := store.UpdateQuantity(r.Context(), owner, productID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// CartRemove drops one line from the cart.
func CartRemove(store cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		items, err := store.Remove(r.Context(), owner, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}

// CartClear wipes the cart.
func CartClear(store cartsvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		owner, err := cartOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.Clear(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, []types.LineItem{})
	}
}
