package enums

import (
	"fmt"
	"strings"
)

// OrderState is the closed lifecycle enum persisted in orders.state.
type OrderState string

const (
	OrderStateCart       OrderState = "cart"
	OrderStatePending    OrderState = "pending"
	OrderStateProcessing OrderState = "processing"
	OrderStateCompleted  OrderState = "completed"
	OrderStateCancelled  OrderState = "cancelled"
	OrderStateDeclined   OrderState = "declined"
)

var validOrderStates = []OrderState{
	OrderStateCart,
	OrderStatePending,
	OrderStateProcessing,
	OrderStateCompleted,
	OrderStateCancelled,
	OrderStateDeclined,
}

// orderStateAliases translates the legacy Spanish vocabulary and admin-entered
// labels onto the canonical states. Keys are lower-cased and trimmed.
var orderStateAliases = map[string]OrderState{
	"cart":       OrderStateCart,
	"carrito":    OrderStateCart,
	"pending":    OrderStatePending,
	"pendiente":  OrderStatePending,
	"processing": OrderStateProcessing,
	"procesado":  OrderStateProcessing,
	"procesando": OrderStateProcessing,
	"en proceso": OrderStateProcessing,
	"completed":  OrderStateCompleted,
	"completado": OrderStateCompleted,
	"completada": OrderStateCompleted,
	"entregado":  OrderStateCompleted,
	"cancelled":  OrderStateCancelled,
	"canceled":   OrderStateCancelled,
	"cancelado":  OrderStateCancelled,
	"cancelada":  OrderStateCancelled,
	"declined":   OrderStateDeclined,
	"rechazado":  OrderStateDeclined,
	"rechazada":  OrderStateDeclined,
	"declinado":  OrderStateDeclined,
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a canonical OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderState) IsTerminal() bool {
	return s == OrderStateCompleted || s == OrderStateCancelled
}

// Label returns the customer-facing Spanish label used in notifications.
func (s OrderState) Label() string {
	switch s {
	case OrderStateCart:
		return "carrito"
	case OrderStatePending:
		return "pendiente"
	case OrderStateProcessing:
		return "en proceso"
	case OrderStateCompleted:
		return "completado"
	case OrderStateCancelled:
		return "cancelado"
	case OrderStateDeclined:
		return "rechazado"
	default:
		return string(s)
	}
}

// ParseOrderState converts canonical values and known aliases into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if state, ok := orderStateAliases[key]; ok {
		return state, nil
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
