package enums

import (
	"fmt"
	"strings"
)

// PaymentState tracks a single collection attempt in payments.state.
type PaymentState string

const (
	PaymentStatePending    PaymentState = "pending"
	PaymentStateProcessing PaymentState = "processing"
	PaymentStateApproved   PaymentState = "approved"
	PaymentStateDeclined   PaymentState = "declined"
	PaymentStateExpired    PaymentState = "expired"
)

var validPaymentStates = []PaymentState{
	PaymentStatePending,
	PaymentStateProcessing,
	PaymentStateApproved,
	PaymentStateDeclined,
	PaymentStateExpired,
}

var paymentStateAliases = map[string]PaymentState{
	"pendiente":  PaymentStatePending,
	"procesando": PaymentStateProcessing,
	"procesado":  PaymentStateProcessing,
	"aprobado":   PaymentStateApproved,
	"aprobada":   PaymentStateApproved,
	"rechazado":  PaymentStateDeclined,
	"rechazada":  PaymentStateDeclined,
	"expirado":   PaymentStateExpired,
	"vencido":    PaymentStateExpired,
}

// LivePaymentStates lists the states that still await settlement.
var LivePaymentStates = []PaymentState{PaymentStatePending, PaymentStateProcessing}

// String implements fmt.Stringer.
func (s PaymentState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentState.
func (s PaymentState) IsValid() bool {
	for _, candidate := range validPaymentStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsLive reports whether the payment can still be settled.
func (s PaymentState) IsLive() bool {
	return s == PaymentStatePending || s == PaymentStateProcessing
}

// IsTerminal reports whether webhook deliveries must no longer mutate the payment.
func (s PaymentState) IsTerminal() bool {
	return s == PaymentStateApproved || s == PaymentStateDeclined || s == PaymentStateExpired
}

// ParsePaymentState converts canonical values and legacy aliases into a PaymentState.
func ParsePaymentState(value string) (PaymentState, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentStates {
		if string(candidate) == key {
			return candidate, nil
		}
	}
	if state, ok := paymentStateAliases[key]; ok {
		return state, nil
	}
	return "", fmt.Errorf("invalid payment state %q", value)
}
