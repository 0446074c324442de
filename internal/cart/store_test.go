package cart

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

type memorySnapshots struct {
	data map[string]string
	sets int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: make(map[string]string)}
}

func (m *memorySnapshots) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memorySnapshots) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	m.sets++
	return nil
}

func (m *memorySnapshots) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memorySnapshots) CartKey(ownerID string) string {
	return "sf:cart:" + ownerID
}

func newTestStore(t *testing.T) (Store, *memorySnapshots) {
	t.Helper()
	snapshots := newMemorySnapshots()
	store, err := NewStore(snapshots)
	require.NoError(t, err)
	return store, snapshots
}

func shirt() types.LineItem {
	return types.LineItem{ProductID: "p1", Name: "Henley Shirt", Price: decimal.NewFromInt(1200), HasVAT: true}
}

func TestAddInsertsWithQuantityOne(t *testing.T) {
	store, snapshots := newTestStore(t)
	ctx := context.Background()

	items, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, snapshots.sets, "mutation must persist synchronously")
}

func TestAddExistingIncrementsQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)
	items, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	items, err := store.UpdateQuantity(ctx, "guest-1", "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestUpdateQuantityZeroRemovesItem(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	items, err := store.UpdateQuantity(ctx, "guest-1", "p1", 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	listed, err := store.List(ctx, "guest-1")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUpdateQuantityUnknownProduct(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.UpdateQuantity(context.Background(), "guest-1", "ghost", 2)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	items, err := store.Remove(ctx, "guest-1", "p1")
	require.NoError(t, err)
	assert.Empty(t, items)

	// Absent id is a no-op, not an error.
	items, err = store.Remove(ctx, "guest-1", "p1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClearWipesCart(t *testing.T) {
	store, snapshots := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "guest-1"))
	assert.Empty(t, snapshots.data)

	listed, err := store.List(ctx, "guest-1")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCartsAreIsolatedPerOwner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	other, err := store.List(ctx, "guest-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSetDiscountCodePricesQuote(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	quote, err := store.SetDiscountCode(ctx, "guest-1", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", quote.DiscountCode)
	assert.False(t, quote.InvalidDiscountCode)
	assert.True(t, quote.DiscountAmount.Equal(decimal.NewFromInt(120)), "discount %s", quote.DiscountAmount)
}

func TestSetDiscountCodeUnknownFlagsInvalid(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	quote, err := store.SetDiscountCode(ctx, "guest-1", "BOGUS")
	require.NoError(t, err)
	assert.True(t, quote.InvalidDiscountCode)
	assert.True(t, quote.DiscountAmount.IsZero())

	// The bad code stays on the cart so later quotes keep flagging it.
	quote, err = store.Quote(ctx, "guest-1")
	require.NoError(t, err)
	assert.True(t, quote.InvalidDiscountCode)
}

func TestSetDiscountCodeReplacesPrevious(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)

	_, err = store.SetDiscountCode(ctx, "guest-1", "SAVE50")
	require.NoError(t, err)
	quote, err := store.SetDiscountCode(ctx, "guest-1", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", quote.DiscountCode)
	assert.True(t, quote.DiscountAmount.Equal(decimal.NewFromInt(120)), "discount %s", quote.DiscountAmount)

	quote, err = store.SetDiscountCode(ctx, "guest-1", "")
	require.NoError(t, err)
	assert.Empty(t, quote.DiscountCode)
	assert.True(t, quote.DiscountAmount.IsZero())
}

func TestDiscountCodeSurvivesItemMutations(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "guest-1", shirt())
	require.NoError(t, err)
	_, err = store.SetDiscountCode(ctx, "guest-1", "SAVE10")
	require.NoError(t, err)

	_, err = store.UpdateQuantity(ctx, "guest-1", "p1", 3)
	require.NoError(t, err)

	quote, err := store.Quote(ctx, "guest-1")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", quote.DiscountCode)
	assert.True(t, quote.DiscountAmount.Equal(decimal.NewFromInt(360)), "discount %s", quote.DiscountAmount)
}

func TestQuoteEmptyCart(t *testing.T) {
	store, _ := newTestStore(t)

	quote, err := store.Quote(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Empty(t, quote.Items)
	assert.True(t, quote.GrandTotal.IsZero())
}

func TestAddRejectsMissingOwnerOrProduct(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, " ", shirt())
	require.Error(t, err)

	_, err = store.Add(ctx, "guest-1", types.LineItem{})
	require.Error(t, err)
}
