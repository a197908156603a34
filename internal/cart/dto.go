package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineView is a cart line with catalog display fields.
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

// CartView backs the cart page and the header badge count.
type CartView struct {
	OrderID   uuid.UUID       `json:"order_id"`
	Lines     []LineView      `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}
