package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// Repository persists payment sessions. One session row exists per order.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, session *models.PaymentSession) (*models.PaymentSession, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentSession, error)
	MarkPaid(ctx context.Context, sessionID uuid.UUID, externalRef string, at time.Time) (int64, error)
	MarkFailed(ctx context.Context, sessionID uuid.UUID) error
	Reopen(ctx context.Context, sessionID uuid.UUID, providerSessionID, checkoutURL string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gorm-backed payment session repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, session *models.PaymentSession) (*models.PaymentSession, error) {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) MarkPaid(ctx context.Context, sessionID uuid.UUID, externalRef string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ? AND status <> ?", sessionID, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"status":       enums.PaymentStatusPaid,
			"external_ref": externalRef,
			"settled_at":   at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkFailed(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ?", sessionID).
		Update("status", enums.PaymentStatusFailed).Error
}

// Reopen points an unsettled session row at a fresh provider session after
// the previous checkout expired.
func (r *repository) Reopen(ctx context.Context, sessionID uuid.UUID, providerSessionID, checkoutURL string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentSession{}).
		Where("id = ? AND status <> ?", sessionID, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"status":       enums.PaymentStatusPending,
			"session_id":   providerSessionID,
			"checkout_url": checkoutURL,
			"external_ref": nil,
			"settled_at":   nil,
		})
	return res.RowsAffected, res.Error
}
