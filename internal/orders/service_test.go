package orders

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/smartzfindery/storefront-backend/pkg/db/models"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/pagination"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

type stubOrderRepo struct {
	orders      map[uuid.UUID]*models.Order
	byNumber    map[string]uuid.UUID
	createCalls int
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders:   make(map[uuid.UUID]*models.Order),
		byNumber: make(map[string]uuid.UUID),
	}
}

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	s.createCalls++
	if _, exists := s.byNumber[order.OrderNumber]; exists {
		return nil, fmt.Errorf("duplicate key value violates unique constraint \"idx_orders_order_number\"")
	}
	order.ID = uuid.New()
	copied := *order
	s.orders[order.ID] = &copied
	s.byNumber[order.OrderNumber] = order.ID
	return order, nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.UserID != nil && *order.UserID == userID {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (s *stubOrderRepo) ListAll(_ context.Context, limit int, after *pagination.Cursor) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		rows = append(rows, *order)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() > rows[j].ID.String()
	})
	if after != nil {
		filtered := rows[:0]
		for _, row := range rows {
			if row.CreatedAt.Before(after.CreatedAt) ||
				(row.CreatedAt.Equal(after.CreatedAt) && row.ID.String() < after.ID.String()) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *stubOrderRepo) Update(_ context.Context, order *models.Order) (*models.Order, error) {
	copied := *order
	s.orders[order.ID] = &copied
	return order, nil
}

type stubSequence struct {
	next int64
}

func (s *stubSequence) Incr(_ context.Context, _ string) (int64, error) {
	s.next++
	return s.next, nil
}

func (s *stubSequence) CounterKey(name string) string {
	return "sf:counter:" + name
}

func validDetails() types.CustomerDetails {
	return types.CustomerDetails{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane.doe@example.com",
		Phone:     "+1 555 123 4567",
		Address:   "1 Main St",
		City:      "Springfield",
		Country:   "US",
		ZipCode:   "12345",
	}
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerDetails: validDetails(),
		Items: []types.LineItem{
			{ProductID: "p1", Name: "Henley Shirt", Price: decimal.NewFromInt(1200), Quantity: 2, HasVAT: true},
		},
		Subtotal: decimal.NewFromInt(2400),
		VATTotal: decimal.NewFromInt(360),
		Total:    decimal.NewFromInt(2760),
	}
}

func newOrderService(t *testing.T) (Service, *stubOrderRepo, *stubSequence) {
	t.Helper()
	repo := newStubOrderRepo()
	seq := &stubSequence{}
	svc, err := NewService(repo, seq)
	require.NoError(t, err)
	return svc, repo, seq
}

func TestCreateOrderPersistsPendingSnapshot(t *testing.T) {
	svc, repo, _ := newOrderService(t)

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentMethodStripe, order.PaymentMethod)
	assert.Nil(t, order.PaymentIntentID)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(2760)))
	assert.Len(t, repo.orders, 1)

	matched, err := regexp.MatchString(`^ORD-\d+-0001$`, order.OrderNumber)
	require.NoError(t, err)
	assert.True(t, matched, "unexpected order number %s", order.OrderNumber)
}

func TestCreateOrderValidatesFieldsInOrder(t *testing.T) {
	svc, repo, _ := newOrderService(t)
	ctx := context.Background()

	cases := []struct {
		field  string
		mutate func(*types.CustomerDetails)
	}{
		{"firstName", func(d *types.CustomerDetails) { d.FirstName = " " }},
		{"lastName", func(d *types.CustomerDetails) { d.LastName = "" }},
		{"email", func(d *types.CustomerDetails) { d.Email = "not-an-email" }},
		{"phone", func(d *types.CustomerDetails) { d.Phone = "" }},
		{"phone", func(d *types.CustomerDetails) { d.Phone = "12345" }},
		{"address", func(d *types.CustomerDetails) { d.Address = "" }},
		{"city", func(d *types.CustomerDetails) { d.City = "" }},
		{"zipCode", func(d *types.CustomerDetails) { d.ZipCode = "" }},
	}

	for _, tc := range cases {
		input := validInput()
		tc.mutate(&input.CustomerDetails)

		_, err := svc.CreateOrder(ctx, input)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "field %s", tc.field)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

		details, ok := typed.Details().(map[string]any)
		require.True(t, ok, "field %s", tc.field)
		assert.Equal(t, tc.field, details["field"])
	}

	assert.Empty(t, repo.orders, "no order may be persisted on validation failure")
}

func TestCreateOrderReportsFirstInvalidField(t *testing.T) {
	svc, _, _ := newOrderService(t)

	input := validInput()
	input.CustomerDetails.FirstName = ""
	input.CustomerDetails.Email = "broken"

	_, err := svc.CreateOrder(context.Background(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details := typed.Details().(map[string]any)
	assert.Equal(t, "firstName", details["field"])
}

func TestCreateOrderPhoneAllowsInternalWhitespace(t *testing.T) {
	svc, _, _ := newOrderService(t)

	input := validInput()
	input.CustomerDetails.Phone = "  +27 82 123 4567 "

	_, err := svc.CreateOrder(context.Background(), input)
	require.NoError(t, err)
}

func TestCreateOrderRejectsEmptyItemsAndBadTotal(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	input := validInput()
	input.Items = nil
	_, err := svc.CreateOrder(ctx, input)
	require.Error(t, err)

	input = validInput()
	input.Total = decimal.Zero
	_, err = svc.CreateOrder(ctx, input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateOrderSequenceIncrements(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	assert.Regexp(t, `-0001$`, first.OrderNumber)
	assert.Regexp(t, `-0002$`, second.OrderNumber)
}

func TestCreateOrderRetriesOnDuplicateNumber(t *testing.T) {
	repo := newStubOrderRepo()
	seq := &stubSequence{}
	svc, err := NewService(repo, seq)
	require.NoError(t, err)
	ctx := context.Background()

	// Freeze the clock so numbers differ only by sequence.
	fixed := time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return fixed }

	first, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	// Rewind the counter to simulate a flushed Redis; the next allocation
	// collides with the first order's number and must be retried.
	seq.next = 0

	second, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, 3, repo.createCalls, "expected one collision and one retry")
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newOrderService(t)

	order, err := svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), order.ID, "teleported")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateStatusAllowsNonTerminalHops(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, order.ID, "processing")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)

	updated, err = svc.UpdateStatus(ctx, order.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)

	// Back to pending is legal; the machine is deliberately loose.
	updated, err = svc.UpdateStatus(ctx, order.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, updated.Status)
}

func TestUpdateStatusBlocksTerminalTransitions(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, "cancelled")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, "processing")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestMarkPaidSetsIntentAndIsIdempotent(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, order.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentIntentID)
	assert.Equal(t, "pi_123", *paid.PaymentIntentID)

	again, err := svc.MarkPaid(ctx, order.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, again.Status)
}

func TestMarkPaidRejectsCancelledOrder(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, "cancelled")
	require.NoError(t, err)

	_, err = svc.MarkPaid(ctx, order.ID, "pi_123")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestGetOrderNotFound(t *testing.T) {
	svc, _, _ := newOrderService(t)

	_, err := svc.GetOrder(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListUserOrders(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	userID := uuid.New()
	input := validInput()
	input.UserID = &userID
	_, err := svc.CreateOrder(ctx, input)
	require.NoError(t, err)

	// Guest order, no user.
	_, err = svc.CreateOrder(ctx, validInput())
	require.NoError(t, err)

	rows, err := svc.ListUserOrders(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	page, err := svc.ListOrders(ctx, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Empty(t, page.NextCursor)
}

func TestListOrdersPaginates(t *testing.T) {
	svc, repo, _ := newOrderService(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		order, err := svc.CreateOrder(ctx, validInput())
		require.NoError(t, err)
		repo.orders[order.ID].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}

	first, err := svc.ListOrders(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListOrders(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)
	assert.NotEqual(t, first.Orders[0].ID, second.Orders[0].ID)

	_, err = svc.ListOrders(ctx, pagination.Params{Cursor: "not-base64!"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
