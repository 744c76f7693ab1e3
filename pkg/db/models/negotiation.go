package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// Negotiation is one append-only entry in an order's price-negotiation ledger.
// Rows are never mutated or deleted.
type Negotiation struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	FromUserID uuid.UUID               `gorm:"column:from_user_id;type:uuid;not null"`
	Action     enums.NegotiationAction `gorm:"column:action;type:negotiation_action;not null"`
	Amount     *decimal.Decimal        `gorm:"column:amount;type:numeric(12,2)"`
	Message    *string                 `gorm:"column:message"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
}
