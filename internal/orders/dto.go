package orders

import (
	"time"

	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor identifies who is acting on an order. The zero value is the system.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// SystemActor is used for webhook and reconciliation driven transitions.
var SystemActor = Actor{}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil && a.Role == ""
}

func (a Actor) owns(order *models.Order) bool {
	return order.CustomerID != nil && *order.CustomerID == a.UserID && a.UserID != uuid.Nil
}

// GuestItem is one requested line of a guest order.
type GuestItem struct {
	ArrangementID uuid.UUID `json:"arrangement_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
}

// GuestOrderInput is an order placed without an account.
type GuestOrderInput struct {
	Name     string              `json:"name" validate:"required,max=120"`
	Email    string              `json:"email" validate:"required,email"`
	Phone    string              `json:"phone" validate:"required,max=30"`
	Address  string              `json:"address" validate:"required,max=500"`
	Comments *string             `json:"comments,omitempty" validate:"omitempty,max=1000"`
	Method   enums.PaymentMethod `json:"payment_method" validate:"required"`
	Items    []GuestItem         `json:"items" validate:"required,min=1,dive"`
}

// GuestOrderResult is returned to the guest after placement.
type GuestOrderResult struct {
	Order   OrderDetail `json:"order"`
	Payment PaymentView `json:"payment"`
}

// ContactView is who receives the order.
type ContactView struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// PaymentView is the customer-facing slice of a payment.
type PaymentView struct {
	ID        uuid.UUID           `json:"id"`
	Method    enums.PaymentMethod `json:"method"`
	State     enums.PaymentState  `json:"state"`
	Amount    decimal.Decimal     `json:"amount"`
	Reference string              `json:"reference"`
	URL       *string             `json:"url,omitempty"`
	SettledAt *time.Time          `json:"settled_at,omitempty"`
}

// LineView is an order line with catalog display fields.
type LineView struct {
	ID              uuid.UUID       `json:"id"`
	ArrangementID   uuid.UUID       `json:"arrangement_id"`
	Name            string          `json:"name"`
	ImageURL        *string         `json:"image_url,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
	Price           decimal.Decimal `json:"price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// OrderDetail is the full view of a single order.
type OrderDetail struct {
	ID              uuid.UUID        `json:"id"`
	State           enums.OrderState `json:"state"`
	StateLabel      string           `json:"state_label"`
	Guest           bool             `json:"guest"`
	CreatedAt       time.Time        `json:"created_at"`
	DeliveryAddress *string          `json:"delivery_address,omitempty"`
	Contact         ContactView      `json:"contact"`
	Comments        *string          `json:"comments,omitempty"`
	Payment         *PaymentView     `json:"payment,omitempty"`
	ItemCount       int              `json:"item_count"`
	Total           decimal.Decimal  `json:"total"`
	Lines           []LineView       `json:"lines"`
}

// OrderSummary is one row of an order listing.
type OrderSummary struct {
	ID         uuid.UUID        `json:"id"`
	State      enums.OrderState `json:"state"`
	StateLabel string           `json:"state_label"`
	Guest      bool             `json:"guest"`
	CreatedAt  time.Time        `json:"created_at"`
	ItemCount  int              `json:"item_count"`
	Total      decimal.Decimal  `json:"total"`
}

// OrderList is a page of summaries.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toPaymentView(payment *models.Payment) *PaymentView {
	if payment == nil {
		return nil
	}
	return &PaymentView{
		ID:        payment.ID,
		Method:    payment.Method,
		State:     payment.State,
		Amount:    payment.Amount,
		Reference: payment.ExternalReference,
		URL:       payment.PaymentURL,
		SettledAt: payment.SettledAt,
	}
}

func toSummaries(rows []models.Order) []OrderSummary {
	out := make([]OrderSummary, 0, len(rows))
	for i := range rows {
		out = append(out, OrderSummary{
			ID:         rows[i].ID,
			State:      rows[i].State,
			StateLabel: rows[i].State.Label(),
			Guest:      rows[i].IsGuest(),
			CreatedAt:  rows[i].CreatedAt,
			ItemCount:  rows[i].ItemCount(),
			Total:      rows[i].Total(),
		})
	}
	return out
}
