package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartzfindery/storefront-backend/pkg/enums"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

// Order is the persisted checkout record. Items and customer details are
// immutable snapshots taken at creation time.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex"`
	UserID          *uuid.UUID            `gorm:"column:user_id;type:uuid"`
	CustomerDetails types.CustomerDetails `gorm:"column:customer_details;type:jsonb;serializer:json;not null"`
	Items           []types.LineItem      `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	VATTotal        decimal.Decimal       `gorm:"column:vat_total;type:numeric(12,2);not null"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;not null;default:'stripe'"`
	Status          enums.OrderStatus     `gorm:"column:status;not null;default:'pending'"`
	PaymentIntentID *string               `gorm:"column:payment_intent_id"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
