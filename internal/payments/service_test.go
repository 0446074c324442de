package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartzfindery/storefront-backend/pkg/db/models"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/stripe"
)

type stubGateway struct {
	created     []int64
	intents     map[string]*stripe.PaymentIntent
	createErr   error
	retrieveErr error
}

func newStubGateway() *stubGateway {
	return &stubGateway{intents: make(map[string]*stripe.PaymentIntent)}
}

func (s *stubGateway) CreatePaymentIntent(_ context.Context, amountMinor int64, currency string, _ map[string]string) (*stripe.PaymentIntent, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, amountMinor)
	intent := &stripe.PaymentIntent{
		ID:           "pi_" + uuid.NewString(),
		ClientSecret: "secret_" + uuid.NewString(),
		Status:       "requires_payment_method",
		AmountMinor:  amountMinor,
		Currency:     currency,
	}
	s.intents[intent.ID] = intent
	return intent, nil
}

func (s *stubGateway) GetPaymentIntent(_ context.Context, intentID string) (*stripe.PaymentIntent, error) {
	if s.retrieveErr != nil {
		return nil, s.retrieveErr
	}
	intent, ok := s.intents[intentID]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return intent, nil
}

type stubOrderManager struct {
	orders    map[uuid.UUID]*models.Order
	paidCalls int
}

func newStubOrderManager() *stubOrderManager {
	return &stubOrderManager{orders: make(map[uuid.UUID]*models.Order)}
}

func (s *stubOrderManager) addOrder(total decimal.Decimal) *models.Order {
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-1-0001",
		Total:       total,
		Status:      enums.OrderStatusPending,
	}
	s.orders[order.ID] = order
	return order
}

func (s *stubOrderManager) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *stubOrderManager) MarkPaid(_ context.Context, orderID uuid.UUID, paymentIntentID string) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPaid {
		s.paidCalls++
		order.Status = enums.OrderStatusPaid
		order.PaymentIntentID = &paymentIntentID
	}
	return order, nil
}

func newPaymentService(t *testing.T) (Service, *stubGateway, *stubOrderManager) {
	t.Helper()
	gw := newStubGateway()
	orders := newStubOrderManager()
	svc, err := NewService(gw, orders, "usd")
	require.NoError(t, err)
	return svc, gw, orders
}

func TestBeginPaymentConvertsTotalToMinorUnits(t *testing.T) {
	svc, gw, orders := newPaymentService(t)
	order := orders.addOrder(decimal.RequireFromString("5450.00"))

	handle, err := svc.BeginPayment(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(545000), handle.AmountMinor)
	assert.Equal(t, "usd", handle.Currency)
	assert.NotEmpty(t, handle.ClientSecret)
	require.Len(t, gw.created, 1)
	assert.Equal(t, int64(545000), gw.created[0])
}

func TestBeginPaymentRoundsHalfUp(t *testing.T) {
	svc, gw, orders := newPaymentService(t)
	order := orders.addOrder(decimal.RequireFromString("10.005"))

	_, err := svc.BeginPayment(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, gw.created, 1)
	assert.Equal(t, int64(1001), gw.created[0])
}

func TestBeginPaymentRejectsNonPositiveTotal(t *testing.T) {
	svc, _, orders := newPaymentService(t)
	order := orders.addOrder(decimal.Zero)

	_, err := svc.BeginPayment(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestBeginPaymentRejectsSettledOrders(t *testing.T) {
	svc, gw, orders := newPaymentService(t)

	for _, status := range []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusCancelled} {
		order := orders.addOrder(decimal.NewFromInt(100))
		order.Status = status

		_, err := svc.BeginPayment(context.Background(), order.ID)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "status %s", status)
		assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	}
	assert.Empty(t, gw.created, "no intent may be opened for a settled order")
}

func TestBeginPaymentGatewayFailure(t *testing.T) {
	svc, gw, orders := newPaymentService(t)
	order := orders.addOrder(decimal.NewFromInt(100))
	gw.createErr = errors.New("gateway down")

	_, err := svc.BeginPayment(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestConfirmPaymentMarksOrderPaid(t *testing.T) {
	svc, gw, orders := newPaymentService(t)
	order := orders.addOrder(decimal.NewFromInt(100))

	handle, err := svc.BeginPayment(context.Background(), order.ID)
	require.NoError(t, err)

	gw.intents[handle.PaymentIntentID].Status = "succeeded"

	result, err := svc.ConfirmPayment(context.Background(), handle.PaymentIntentID, order.ID)
	require.NoError(t, err)
	assert.True(t, result.Paid)
	assert.Equal(t, enums.OrderStatusPaid, result.Order.Status)
	require.NotNil(t, result.Order.PaymentIntentID)
	assert.Equal(t, handle.PaymentIntentID, *result.Order.PaymentIntentID)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	svc, gw, orders := newPaymentService(t)
	order := orders.addOrder(decimal.NewFromInt(100))

	handle, err := svc.BeginPayment(context.Background(), order.ID)
	require.NoError(t, err)
	gw.intents[handle.PaymentIntentID].Status = "succeeded"

	first, err := svc.ConfirmPayment(context.Background(), handle.PaymentIntentID, order.ID)
	require.NoError(t, err)
	second, err := svc.ConfirmPayment(context.Background(), handle.PaymentIntentID, order.ID)
	require.NoError(t, err)

	assert.True(t, first.Paid)
	assert.True(t, second.Paid)
	assert.Equal(t, first.Order.Status, second.Order.Status)
	assert.Equal(t, 1, orders.paidCalls, "side effects must not double-apply")
}

func TestConfirmPaymentLeavesOrderUntouchedOnPendingIntent(t *testing.T) {
	svc, _, orders := newPaymentService(t)
	order := orders.addOrder(decimal.NewFromInt(100))

	handle, err := svc.BeginPayment(context.Background(), order.ID)
	require.NoError(t, err)

	result, err := svc.ConfirmPayment(context.Background(), handle.PaymentIntentID, order.ID)
	require.NoError(t, err)
	assert.False(t, result.Paid)
	assert.Equal(t, "requires_payment_method", result.GatewayStatus)
	assert.Equal(t, enums.OrderStatusPending, result.Order.Status)
}

func TestConfirmPaymentGatewayErrorSurfaces(t *testing.T) {
	svc, gw, orders := newPaymentService(t)
	order := orders.addOrder(decimal.NewFromInt(100))
	gw.retrieveErr = errors.New("timeout")

	_, err := svc.ConfirmPayment(context.Background(), "pi_123", order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Equal(t, enums.OrderStatusPending, orders.orders[order.ID].Status)
}
