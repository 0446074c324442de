package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/smartzfindery/storefront-backend/internal/cart"
	"github.com/smartzfindery/storefront-backend/internal/orders"
	"github.com/smartzfindery/storefront-backend/internal/payments"
	"github.com/smartzfindery/storefront-backend/internal/pricing"
	"github.com/smartzfindery/storefront-backend/pkg/db/models"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

// State is the checkout flow position for one cart owner.
type State string

const (
	StateCollectingDetails State = "collecting_details"
	StateAwaitingPayment   State = "awaiting_payment"
	StateCompleted         State = "completed"
)

type cartSource interface {
	Quote(ctx context.Context, ownerID string) (*cart.Quote, error)
	Clear(ctx context.Context, ownerID string) error
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
}

type paymentCoordinator interface {
	BeginPayment(ctx context.Context, orderID uuid.UUID) (*payments.PaymentHandle, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string, orderID uuid.UUID) (*payments.ConfirmResult, error)
}

// DetailsInput is what the customer submits on the details step.
type DetailsInput struct {
	UserID          *uuid.UUID
	CustomerDetails types.CustomerDetails
	DiscountCode    string
	PaymentMethod   enums.PaymentMethod
}

// Progress is the flow snapshot handed back after each step.
type Progress struct {
	State               State                   `json:"state"`
	Order               *models.Order           `json:"order,omitempty"`
	Payment             *payments.PaymentHandle `json:"payment,omitempty"`
	GatewayStatus       string                  `json:"gatewayStatus,omitempty"`
	InvalidDiscountCode bool                    `json:"invalidDiscountCode,omitempty"`
}

// Flow walks one cart owner through details, payment and completion.
// The order is created from the server-side cart snapshot with server-side
// totals, so a flow-created order always matches its own items.
type Flow struct {
	mu sync.Mutex

	ownerID  string
	carts    cartSource
	orders   orderCreator
	payments paymentCoordinator

	state   State
	order   *models.Order
	payment *payments.PaymentHandle
	invalid bool
}

func newFlow(ownerID string, carts cartSource, creator orderCreator, coordinator paymentCoordinator) *Flow {
	return &Flow{
		ownerID:  ownerID,
		carts:    carts,
		orders:   creator,
		payments: coordinator,
		state:    StateCollectingDetails,
	}
}

// Progress reports the flow position without advancing it.
func (f *Flow) Progress() Progress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot("")
}

// SubmitDetails moves the flow from details to payment. It snapshots the
// cart into an order, prices it, and opens a payment intent for the grand
// total. The flow only advances when both steps succeed.
func (f *Flow) SubmitDetails(ctx context.Context, input DetailsInput) (Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollectingDetails {
		return f.snapshot(""), pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("checkout is %s, not collecting details", f.state))
	}

	quote, err := f.carts.Quote(ctx, f.ownerID)
	if err != nil {
		return f.snapshot(""), err
	}
	items := quote.Items
	if len(items) == 0 {
		return f.snapshot(""), pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// A code submitted with the details wins; otherwise the one already
	// applied to the cart carries through.
	code := input.DiscountCode
	if code == "" {
		code = quote.DiscountCode
	}
	breakdown, err := pricing.ComputeBreakdown(items, code)
	if err != nil {
		return f.snapshot(""), err
	}
	f.invalid = breakdown.InvalidDiscountCode

	order, err := f.orders.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:          input.UserID,
		CustomerDetails: input.CustomerDetails,
		Items:           items,
		Subtotal:        breakdown.Subtotal,
		VATTotal:        breakdown.VATTotal,
		Total:           breakdown.GrandTotal,
		PaymentMethod:   input.PaymentMethod,
	})
	if err != nil {
		return f.snapshot(""), err
	}

	handle, err := f.payments.BeginPayment(ctx, order.ID)
	if err != nil {
		// The pending order stays behind; a retry submits a fresh one.
		return f.snapshot(""), err
	}

	f.order = order
	f.payment = handle
	f.state = StateAwaitingPayment
	return f.snapshot(""), nil
}

// EditDetails steps back from payment to the details form. The pending
// order is abandoned; the next submit creates a new one.
func (f *Flow) EditDetails() (Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateCompleted:
		return f.snapshot(""), pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already completed")
	case StateAwaitingPayment:
		f.state = StateCollectingDetails
		f.order = nil
		f.payment = nil
	}
	return f.snapshot(""), nil
}

// CompletePayment confirms the open intent with the gateway. Success
// completes the flow and clears the cart; any other gateway status keeps
// the flow awaiting payment so the customer can retry. Calling again on a
// completed flow returns the final state without re-running side effects.
func (f *Flow) CompletePayment(ctx context.Context) (Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateCompleted {
		return f.snapshot("succeeded"), nil
	}
	if f.state != StateAwaitingPayment {
		return f.snapshot(""), pkgerrors.New(pkgerrors.CodeStateConflict,
			"checkout has no payment in progress")
	}

	result, err := f.payments.ConfirmPayment(ctx, f.payment.PaymentIntentID, f.order.ID)
	if err != nil {
		return f.snapshot(""), err
	}
	if !result.Paid {
		return f.snapshot(result.GatewayStatus), nil
	}

	// Clear before going terminal: if it fails the flow stays awaiting,
	// and the retry re-confirms (a no-op on a paid order) then clears.
	if err := f.carts.Clear(ctx, f.ownerID); err != nil {
		return f.snapshot(result.GatewayStatus), err
	}
	f.order = result.Order
	f.state = StateCompleted
	return f.snapshot(result.GatewayStatus), nil
}

func (f *Flow) snapshot(gatewayStatus string) Progress {
	return Progress{
		State:               f.state,
		Order:               f.order,
		Payment:             f.payment,
		GatewayStatus:       gatewayStatus,
		InvalidDiscountCode: f.invalid,
	}
}

// Manager hands out one Flow per cart owner.
type Manager struct {
	mu    sync.Mutex
	flows map[string]*Flow

	carts    cartSource
	orders   orderCreator
	payments paymentCoordinator
}

// NewManager builds the checkout manager with the required dependencies.
func NewManager(carts cartSource, creator orderCreator, coordinator paymentCoordinator) (*Manager, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if creator == nil {
		return nil, fmt.Errorf("order service required")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("payment service required")
	}
	return &Manager{
		flows:    make(map[string]*Flow),
		carts:    carts,
		orders:   creator,
		payments: coordinator,
	}, nil
}

// FlowFor returns the owner's active flow, creating one when absent or
// when the previous flow already completed.
func (m *Manager) FlowFor(ownerID string) (*Flow, error) {
	if ownerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Completed flows are dead weight; drop them instead of letting
	// client-chosen owner ids accumulate entries forever.
	for id, fl := range m.flows {
		if fl.Progress().State == StateCompleted {
			delete(m.flows, id)
		}
	}

	flow, ok := m.flows[ownerID]
	if ok {
		return flow, nil
	}
	flow = newFlow(ownerID, m.carts, m.orders, m.payments)
	m.flows[ownerID] = flow
	return flow, nil
}
