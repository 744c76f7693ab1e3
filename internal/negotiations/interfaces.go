package negotiations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
)

// Repository defines persistence operations for the negotiation ledger plus
// the order columns an accepted price writes through to.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.Negotiation) (*models.Negotiation, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Negotiation, error)
	FindLatestProposal(ctx context.Context, orderID uuid.UUID) (*models.Negotiation, error)
	HasProposal(ctx context.Context, orderID uuid.UUID) (bool, error)
	HasAccept(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ApplyAcceptedPrice(ctx context.Context, orderID uuid.UUID, amount, finalAmount decimal.Decimal, acceptedAt time.Time) (int64, error)
}
