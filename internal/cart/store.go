package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/smartzfindery/storefront-backend/internal/pricing"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

type snapshotStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(ownerID string) string
}

// snapshot is the persisted cart document. The discount code lives next to
// the items so a quote can always be recomputed from storage alone.
type snapshot struct {
	Items        []types.LineItem `json:"items"`
	DiscountCode string           `json:"discountCode,omitempty"`
}

// Quote is the cart priced with its stored discount code. Amounts are
// recomputed from the items on every call, never cached.
type Quote struct {
	Items               []types.LineItem `json:"items"`
	DiscountCode        string           `json:"discountCode,omitempty"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	VATTotal            decimal.Decimal  `json:"vatTotal"`
	DiscountAmount      decimal.Decimal  `json:"discountAmount"`
	GrandTotal          decimal.Decimal  `json:"grandTotal"`
	InvalidDiscountCode bool             `json:"invalidDiscountCode,omitempty"`
}

// Store holds cart line items per owner. Every mutation persists the full
// snapshot synchronously before returning, so carts survive restarts.
type Store interface {
	Add(ctx context.Context, ownerID string, product types.LineItem) ([]types.LineItem, error)
	UpdateQuantity(ctx context.Context, ownerID, productID string, qty int) ([]types.LineItem, error)
	Remove(ctx context.Context, ownerID, productID string) ([]types.LineItem, error)
	Clear(ctx context.Context, ownerID string) error
	List(ctx context.Context, ownerID string) ([]types.LineItem, error)
	SetDiscountCode(ctx context.Context, ownerID, code string) (*Quote, error)
	Quote(ctx context.Context, ownerID string) (*Quote, error)
}

type store struct {
	snapshots snapshotStore
}

// NewStore builds a cart store backed by the provided snapshot storage.
func NewStore(snapshots snapshotStore) (Store, error) {
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	return &store{snapshots: snapshots}, nil
}

// Add inserts the product with quantity 1, or bumps the quantity by 1 when
// the product is already in the cart. Any quantity on the input is ignored.
func (s *store) Add(ctx context.Context, ownerID string, product types.LineItem) ([]types.LineItem, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(product.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if product.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}

	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range snap.Items {
		if snap.Items[i].ProductID == product.ProductID {
			snap.Items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		product.Quantity = 1
		snap.Items = append(snap.Items, product)
	}

	if err := s.persist(ctx, ownerID, snap); err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// UpdateQuantity sets the quantity outright. A target of zero or below
// removes the item.
func (s *store) UpdateQuantity(ctx context.Context, ownerID, productID string, qty int) ([]types.LineItem, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return s.Remove(ctx, ownerID, productID)
	}

	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for i := range snap.Items {
		if snap.Items[i].ProductID == productID {
			snap.Items[i].Quantity = qty
			if err := s.persist(ctx, ownerID, snap); err != nil {
				return nil, err
			}
			return snap.Items, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not in cart", productID))
}

// Remove drops the item if present. Removing an absent id is a no-op.
func (s *store) Remove(ctx context.Context, ownerID, productID string) ([]types.LineItem, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	filtered := snap.Items[:0]
	for _, item := range snap.Items {
		if item.ProductID != productID {
			filtered = append(filtered, item)
		}
	}
	snap.Items = filtered

	if err := s.persist(ctx, ownerID, snap); err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// Clear wipes the cart entirely, discount code included.
func (s *store) Clear(ctx context.Context, ownerID string) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	if err := s.snapshots.Del(ctx, s.snapshots.CartKey(ownerID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

// List returns the current cart contents. A missing snapshot is an empty cart.
func (s *store) List(ctx context.Context, ownerID string) ([]types.LineItem, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

// SetDiscountCode stores the code on the cart, replacing whatever was there
// before, and returns the re-priced quote. A code that does not resolve is
// still stored; the quote carries a zero discount and flags it invalid so
// the customer can correct it. An empty code removes the discount.
func (s *store) SetDiscountCode(ctx context.Context, ownerID, code string) (*Quote, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	snap.DiscountCode = strings.TrimSpace(code)

	if err := s.persist(ctx, ownerID, snap); err != nil {
		return nil, err
	}
	return quoteFor(snap)
}

// Quote prices the cart with its stored discount code.
func (s *store) Quote(ctx context.Context, ownerID string) (*Quote, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return quoteFor(snap)
}

func quoteFor(snap snapshot) (*Quote, error) {
	breakdown, err := pricing.ComputeBreakdown(snap.Items, snap.DiscountCode)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Items:               snap.Items,
		DiscountCode:        snap.DiscountCode,
		Subtotal:            breakdown.Subtotal,
		VATTotal:            breakdown.VATTotal,
		DiscountAmount:      breakdown.DiscountAmount,
		GrandTotal:          breakdown.GrandTotal,
		InvalidDiscountCode: breakdown.InvalidDiscountCode,
	}, nil
}

func (s *store) load(ctx context.Context, ownerID string) (snapshot, error) {
	raw, err := s.snapshots.Get(ctx, s.snapshots.CartKey(ownerID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return snapshot{Items: []types.LineItem{}}, nil
		}
		return snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart snapshot")
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return snapshot{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding cart snapshot")
	}
	if snap.Items == nil {
		snap.Items = []types.LineItem{}
	}
	return snap, nil
}

func (s *store) persist(ctx context.Context, ownerID string, snap snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart snapshot")
	}
	// Carts are durable; no TTL.
	if err := s.snapshots.Set(ctx, s.snapshots.CartKey(ownerID), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart snapshot")
	}
	return nil
}

func validateOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner id is required")
	}
	return nil
}
