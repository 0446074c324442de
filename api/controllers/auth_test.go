package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartzfindery/storefront-backend/api/middleware"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

func TestAuthLogoutClearsCallerCart(t *testing.T) {
	store := newStubCartStore()
	store.items["user-1"] = []types.LineItem{{ProductID: "p1", Quantity: 1}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()

	AuthLogout(store, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.clearCalls != 1 {
		t.Fatalf("expected cart cleared once, got %d", store.clearCalls)
	}
}

func TestAuthLogoutWithoutIdentitySucceeds(t *testing.T) {
	store := newStubCartStore()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()

	AuthLogout(store, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.clearCalls != 0 {
		t.Fatal("expected no clear call without a cart identity")
	}
}
