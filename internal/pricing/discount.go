package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Discount codes are a fixed table; unknown codes resolve to a zero rate
// without failing the computation.
var discountRates = map[string]decimal.Decimal{
	"SAVE10":    decimal.RequireFromString("0.10"),
	"SAVE50":    decimal.RequireFromString("0.50"),
	"WELCOME20": decimal.RequireFromString("0.20"),
}

// ResolveDiscountRate maps a code to its percentage-off-subtotal rate.
// The second return reports whether the code is known. Empty codes are
// valid and carry a zero rate.
func ResolveDiscountRate(code string) (decimal.Decimal, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return decimal.Zero, true
	}
	rate, ok := discountRates[normalized]
	if !ok {
		return decimal.Zero, false
	}
	return rate, true
}
