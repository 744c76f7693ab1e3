package negotiations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a negotiations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entry *models.Negotiation) (*models.Negotiation, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Negotiation, error) {
	var entries []models.Negotiation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindLatestProposal(ctx context.Context, orderID uuid.UUID) (*models.Negotiation, error) {
	var entry models.Negotiation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND action IN ?", orderID, []enums.NegotiationAction{
			enums.NegotiationActionOffer,
			enums.NegotiationActionCounter,
		}).
		Order("created_at DESC").
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) HasProposal(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("order_id = ? AND action IN ?", orderID, []enums.NegotiationAction{
			enums.NegotiationActionOffer,
			enums.NegotiationActionCounter,
		}).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) HasAccept(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("order_id = ? AND action = ?", orderID, enums.NegotiationActionAccept).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ApplyAcceptedPrice writes the accepted unit price through to the order,
// conditional on the order still being pending. Returns rows affected.
func (r *repository) ApplyAcceptedPrice(ctx context.Context, orderID uuid.UUID, amount, finalAmount decimal.Decimal, acceptedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"negotiated_price": amount,
			"final_amount":     finalAmount,
			"status":           enums.OrderStatusAccepted,
			"accepted_at":      acceptedAt,
		})
	return res.RowsAffected, res.Error
}
