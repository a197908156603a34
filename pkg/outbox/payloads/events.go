package payloads

import (
	"time"

	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStateChangedEvent is emitted for every order state transition.
type OrderStateChangedEvent struct {
	OrderID   uuid.UUID        `json:"order_id"`
	FromState enums.OrderState `json:"from_state"`
	ToState   enums.OrderState `json:"to_state"`
	Reason    string           `json:"reason"`
	ChangedAt time.Time        `json:"changed_at"`
}

// PaymentSettledEvent backs both payment_approved and payment_declined.
type PaymentSettledEvent struct {
	PaymentID             uuid.UUID          `json:"payment_id"`
	OrderID               uuid.UUID          `json:"order_id"`
	ExternalReference     string             `json:"external_reference"`
	ProviderTransactionID string             `json:"provider_transaction_id"`
	Amount                decimal.Decimal    `json:"amount"`
	State                 enums.PaymentState `json:"state"`
	SettledAt             time.Time          `json:"settled_at"`
}

// NotificationRequestedEvent asks the notification worker to email a customer.
type NotificationRequestedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Reason  string    `json:"reason"`
}
