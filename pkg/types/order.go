package types

import "github.com/shopspring/decimal"

// LineItem is a priced cart or order line. Price is the unit price in
// major currency units.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	HasVAT    bool            `json:"hasVat"`
}

// LineTotal returns unit price multiplied by quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CustomerDetails is the shipping and contact block captured at checkout.
// It is stored verbatim on the order as a snapshot.
type CustomerDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country,omitempty"`
	ZipCode   string `json:"zipCode"`
}
