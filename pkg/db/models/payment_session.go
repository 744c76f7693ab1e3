package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// PaymentSession tracks the hosted-checkout session (or COD confirmation)
// attached to one order. The core stores only the external reference, never
// card data.
type PaymentSession struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Method      enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'unpaid'"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	SessionID   *string             `gorm:"column:session_id"`
	CheckoutURL *string             `gorm:"column:checkout_url"`
	ExternalRef *string             `gorm:"column:external_ref"`
	SettledAt   *time.Time          `gorm:"column:settled_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
