package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/smartzfindery/storefront-backend/internal/pricing"
	"github.com/smartzfindery/storefront-backend/pkg/db/models"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/stripe"
)

type gateway interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
}

type orderManager interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (*models.Order, error)
}

// Service bridges orders to the payment gateway.
type Service interface {
	BeginPayment(ctx context.Context, orderID uuid.UUID) (*PaymentHandle, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string, orderID uuid.UUID) (*ConfirmResult, error)
}

// PaymentHandle is what the client needs to complete payment.
type PaymentHandle struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	AmountMinor     int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// ConfirmResult reports the gateway verdict. Paid is true only when the
// order reached its terminal paid state.
type ConfirmResult struct {
	Order         *models.Order
	GatewayStatus string
	Paid          bool
}

type service struct {
	gateway  gateway
	orders   orderManager
	currency string
}

// NewService builds the payment coordinator with the required dependencies.
func NewService(gw gateway, orders orderManager, currency string) (Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order manager required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}
	return &service{gateway: gw, orders: orders, currency: currency}, nil
}

// BeginPayment opens a gateway intent for the order's grand total,
// converted to minor units, tagged with the order id. Only a pending
// order can start payment; a settled or cancelled one must never get a
// second live intent.
func (s *service) BeginPayment(ctx context.Context, orderID uuid.UUID) (*PaymentHandle, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order %s is %s, payment can only start on a pending order", order.OrderNumber, order.Status))
	}
	if !order.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive to start payment")
	}

	amountMinor := pricing.MinorUnits(order.Total)
	intent, err := s.gateway.CreatePaymentIntent(ctx, amountMinor, s.currency, map[string]string{
		"orderId":     order.ID.String(),
		"orderNumber": order.OrderNumber,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}

	return &PaymentHandle{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountMinor:     intent.AmountMinor,
		Currency:        s.currency,
	}, nil
}

// ConfirmPayment checks the gateway's view of the intent. On success the
// order is marked paid; confirming an already paid order again is a
// no-op. On any other gateway status the order is left untouched and the
// status is handed back for the caller to act on.
func (s *service) ConfirmPayment(ctx context.Context, paymentIntentID string, orderID uuid.UUID) (*ConfirmResult, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieving payment intent")
	}

	if !intent.Succeeded() {
		order, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return &ConfirmResult{Order: order, GatewayStatus: intent.Status, Paid: false}, nil
	}

	order, err := s.orders.MarkPaid(ctx, orderID, paymentIntentID)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Order: order, GatewayStatus: intent.Status, Paid: true}, nil
}
