package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartzfindery/storefront-backend/pkg/db"
	"github.com/smartzfindery/storefront-backend/pkg/db/models"
	"github.com/smartzfindery/storefront-backend/pkg/enums"
	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/pagination"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

type orderRepo interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context, limit int, after *pagination.Cursor) ([]models.Order, error)
	Update(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Service manages the order lifecycle from snapshot to terminal state.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListOrders(ctx context.Context, params pagination.Params) (*OrderPage, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (*models.Order, error)
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// CreateOrderInput carries the checkout snapshot. Totals are the
// client-computed breakdown; they are stored as submitted.
type CreateOrderInput struct {
	UserID          *uuid.UUID
	CustomerDetails types.CustomerDetails
	Items           []types.LineItem
	Subtotal        decimal.Decimal
	VATTotal        decimal.Decimal
	Total           decimal.Decimal
	PaymentMethod   enums.PaymentMethod
}

type service struct {
	repo orderRepo
	seq  sequenceSource
	now  func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo orderRepo, seq sequenceSource) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if seq == nil {
		return nil, fmt.Errorf("sequence source required")
	}
	return &service{
		repo: repo,
		seq:  seq,
		now:  time.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer details and items are required")
	}
	if err := validateCustomerDetails(input.CustomerDetails); err != nil {
		return nil, err
	}
	if !input.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid total amount")
	}

	order := &models.Order{
		UserID:          input.UserID,
		CustomerDetails: input.CustomerDetails,
		Items:           input.Items,
		Subtotal:        input.Subtotal.Round(2),
		VATTotal:        input.VATTotal.Round(2),
		Total:           input.Total.Round(2),
		PaymentMethod:   input.PaymentMethod.OrDefault(),
		Status:          enums.OrderStatusPending,
	}

	// A lost counter (e.g. flushed Redis) can produce a duplicate order
	// number; the unique index catches it and we allocate a fresh one.
	backoff := retry.WithMaxRetries(3, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		number, err := nextOrderNumber(ctx, s.seq, s.now())
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if _, err := s.repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "idx_orders_order_number") {
				return retry.RetryableError(err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting order")
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}

	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing user orders")
	}
	return rows, nil
}

// ListOrders returns one page of all orders for the admin view. The page
// size is clamped and an opaque cursor points at the next page.
func (s *service) ListOrders(ctx context.Context, params pagination.Params) (*OrderPage, error) {
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListAll(ctx, pagination.LimitWithBuffer(params.Limit), after)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	page := &OrderPage{Orders: rows}
	if len(rows) > limit {
		page.Orders = rows[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// UpdateStatus moves an order between statuses. Beyond rejecting unknown
// values and transitions out of terminal states, any status is reachable
// from any other.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus string) (*models.Order, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(newStatus))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"invalid status, valid statuses: pending, paid, processing, shipped, delivered, cancelled")
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == status {
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order %s is %s and cannot change status", order.OrderNumber, order.Status)).
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	order.Status = status
	updated, err := s.repo.Update(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	return updated, nil
}

// MarkPaid transitions a pending order to paid and pins the payment
// intent on it. Re-marking an already paid order is a no-op that returns
// the current state.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) (*models.Order, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusPaid {
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order %s is %s and cannot be paid", order.OrderNumber, order.Status))
	}

	order.Status = enums.OrderStatusPaid
	order.PaymentIntentID = &paymentIntentID
	updated, err := s.repo.Update(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
	}
	return updated, nil
}
