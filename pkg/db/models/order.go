package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/pkg/enums"
)

// Order is a purchase intent owned by a registered customer or a guest.
// Payments reference orders; an order never points at a payment.
type Order struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID   *uuid.UUID       `gorm:"column:customer_id;type:uuid"`
	GuestName    *string          `gorm:"column:guest_name"`
	GuestEmail   *string          `gorm:"column:guest_email"`
	GuestPhone   *string          `gorm:"column:guest_phone"`
	GuestAddress *string          `gorm:"column:guest_address"`
	State        enums.OrderState `gorm:"column:state;type:text;not null;default:'cart'"`
	Comments     *string          `gorm:"column:comments"`
	Lines        []OrderLine      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsGuest reports whether the order carries contact fields instead of a customer.
func (o *Order) IsGuest() bool {
	return o.CustomerID == nil
}

// Total sums the effective line prices.
func (o *Order) Total() decimal.Decimal {
	return LinesTotal(o.Lines)
}

// ItemCount sums line quantities.
func (o *Order) ItemCount() int {
	count := 0
	for _, line := range o.Lines {
		count += line.Quantity
	}
	return count
}
