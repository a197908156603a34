package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod identifies how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodWompi    PaymentMethod = "wompi"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

var paymentMethodAliases = map[string]PaymentMethod{
	"wompi":         PaymentMethodWompi,
	"tarjeta":       PaymentMethodWompi,
	"card":          PaymentMethodWompi,
	"cash":          PaymentMethodCash,
	"efectivo":      PaymentMethodCash,
	"transfer":      PaymentMethodTransfer,
	"transferencia": PaymentMethodTransfer,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodWompi, PaymentMethodCash, PaymentMethodTransfer:
		return true
	default:
		return false
	}
}

// ParsePaymentMethod converts raw input (English or Spanish) into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if method, ok := paymentMethodAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return method, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
