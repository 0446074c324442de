package enums

// PaymentMethod names the processor an order was paid through. Orders
// default to stripe; the field is kept open for future processors.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
)

func (m PaymentMethod) String() string {
	return string(m)
}

// OrDefault falls back to stripe when the method is empty.
func (m PaymentMethod) OrDefault() PaymentMethod {
	if m == "" {
		return PaymentMethodStripe
	}
	return m
}
