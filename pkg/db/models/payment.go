package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/pkg/enums"
)

// Payment is one attempt to collect money for an order. ExternalReference is
// the merchant-side key the gateway echoes back in webhooks.
type Payment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID               uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Method                enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	State                 enums.PaymentState  `gorm:"column:state;type:text;not null"`
	ExternalReference     string              `gorm:"column:external_reference;not null;uniqueIndex:payments_external_reference_key"`
	ProviderTransactionID *string             `gorm:"column:provider_transaction_id"`
	ProviderLinkID        *string             `gorm:"column:provider_link_id"`
	PaymentURL            *string             `gorm:"column:payment_url"`
	SettledAt             *time.Time          `gorm:"column:settled_at"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
