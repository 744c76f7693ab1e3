package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// HandoverCode is a single-use verification token for one leg of the physical
// exchange. At most one unconsumed code exists per (order, direction).
type HandoverCode struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	Direction    enums.HandoverDirection `gorm:"column:direction;type:handover_direction;not null"`
	Secret       string                  `gorm:"column:secret;not null"`
	IssuedAt     time.Time               `gorm:"column:issued_at;autoCreateTime"`
	ConsumedAt   *time.Time              `gorm:"column:consumed_at"`
	SupersededAt *time.Time              `gorm:"column:superseded_at"`
}
