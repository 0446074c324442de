package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
	"github.com/smartzfindery/storefront-backend/pkg/types"
)

// VATRate is the flat tax rate applied per line item flagged HasVAT.
var VATRate = decimal.RequireFromString("0.15")

// Breakdown is the computed price decomposition of a set of line items.
// All amounts are kept at full precision; rounding happens at the
// storage/wire boundary.
type Breakdown struct {
	Subtotal       decimal.Decimal
	VATTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	GrandTotal     decimal.Decimal
	DiscountRate   decimal.Decimal

	// InvalidDiscountCode is set when a non-empty code did not resolve.
	// The breakdown is still usable; the discount is simply zero.
	InvalidDiscountCode bool
}

// ComputeBreakdown turns line items plus an optional discount code into a
// price breakdown. VAT is computed per item and summed, never on the
// aggregate subtotal. The discount applies to the pre-VAT subtotal only.
// The grand total is clamped at zero when a discount would exceed it.
func ComputeBreakdown(items []types.LineItem, discountCode string) (Breakdown, error) {
	subtotal := decimal.Zero
	vatTotal := decimal.Zero

	for _, item := range items {
		if err := validateLineItem(item); err != nil {
			return Breakdown{}, err
		}
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		if item.HasVAT {
			vatTotal = vatTotal.Add(lineTotal.Mul(VATRate))
		}
	}

	rate, known := ResolveDiscountRate(discountCode)
	discount := subtotal.Mul(rate)

	grandTotal := subtotal.Add(vatTotal).Sub(discount)
	if grandTotal.IsNegative() {
		grandTotal = decimal.Zero
	}

	return Breakdown{
		Subtotal:            subtotal,
		VATTotal:            vatTotal,
		DiscountAmount:      discount,
		GrandTotal:          grandTotal,
		DiscountRate:        rate,
		InvalidDiscountCode: !known,
	}, nil
}

// MinorUnits converts a major-unit amount to integer minor currency units
// using round-half-up, the conversion payment gateways expect.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func validateLineItem(item types.LineItem) error {
	if item.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "line item has negative unit price").
			WithDetails(map[string]any{"productId": item.ProductID, "price": item.Price.String()})
	}
	if item.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item quantity must be at least 1, got %d", item.Quantity)).
			WithDetails(map[string]any{"productId": item.ProductID})
	}
	return nil
}
