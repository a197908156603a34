package enums

import "testing"

func TestParseOrderStateTranslatesLegacyVocabulary(t *testing.T) {
	cases := map[string]OrderState{
		"carrito":     OrderStateCart,
		" Pendiente ": OrderStatePending,
		"procesado":   OrderStateProcessing,
		"COMPLETADO":  OrderStateCompleted,
		"cancelado":   OrderStateCancelled,
		"canceled":    OrderStateCancelled,
		"declined":    OrderStateDeclined,
	}
	for input, want := range cases {
		got, err := ParseOrderState(input)
		if err != nil {
			t.Fatalf("ParseOrderState(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseOrderState(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseOrderState("shipped"); err == nil {
		t.Fatal("expected unknown state to fail")
	}
}

func TestOrderStateTerminal(t *testing.T) {
	for _, state := range []OrderState{OrderStateCompleted, OrderStateCancelled} {
		if !state.IsTerminal() {
			t.Fatalf("expected %s to be terminal", state)
		}
	}
	for _, state := range []OrderState{OrderStateCart, OrderStatePending, OrderStateProcessing, OrderStateDeclined} {
		if state.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", state)
		}
	}
}

func TestPaymentStateLiveAndTerminalArePartitioned(t *testing.T) {
	for _, state := range validPaymentStates {
		if state.IsLive() == state.IsTerminal() {
			t.Fatalf("state %s must be exactly one of live or terminal", state)
		}
	}
}

func TestParseRoleAcceptsLegacyLabels(t *testing.T) {
	if role, err := ParseRole("Administrador"); err != nil || role != RoleAdmin {
		t.Fatalf("expected admin, got %q (%v)", role, err)
	}
	if role, err := ParseRole("Cliente"); err != nil || role != RoleCustomer {
		t.Fatalf("expected customer, got %q (%v)", role, err)
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected unknown role to fail")
	}

	var role Role
	if err := role.UnmarshalText([]byte("cliente")); err != nil || role != RoleCustomer {
		t.Fatalf("expected UnmarshalText to translate, got %q (%v)", role, err)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if m, err := ParsePaymentMethod("Efectivo"); err != nil || m != PaymentMethodCash {
		t.Fatalf("expected cash, got %q (%v)", m, err)
	}
	if m, err := ParsePaymentMethod("tarjeta"); err != nil || m != PaymentMethodWompi {
		t.Fatalf("expected wompi, got %q (%v)", m, err)
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected unknown method to fail")
	}
}

func TestOutboxVocabulary(t *testing.T) {
	if e, err := ParseOutboxEventType("payment_approved"); err != nil || e != EventPaymentApproved {
		t.Fatalf("expected payment_approved, got %q (%v)", e, err)
	}
	if _, err := ParseOutboxEventType("Payment_Approved"); err == nil {
		t.Fatal("event types are matched exactly")
	}
	if a, err := ParseOutboxAggregateType("order"); err != nil || a != AggregateOrder {
		t.Fatalf("expected order aggregate, got %q (%v)", a, err)
	}
	if OutboxAggregateType("cart").IsValid() {
		t.Fatal("cart is not an outbox aggregate")
	}
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatal("unexpected dlq reason validity")
	}
}
