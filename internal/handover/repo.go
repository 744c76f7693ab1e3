package handover

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// Repository defines persistence operations for handover codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, code *models.HandoverCode) (*models.HandoverCode, error)
	FindActive(ctx context.Context, orderID uuid.UUID, direction enums.HandoverDirection) (*models.HandoverCode, error)
	SupersedeActive(ctx context.Context, orderID uuid.UUID, direction enums.HandoverDirection, at time.Time) error
	MarkConsumed(ctx context.Context, codeID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a handover code repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, code *models.HandoverCode) (*models.HandoverCode, error) {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return nil, err
	}
	return code, nil
}

func (r *repository) FindActive(ctx context.Context, orderID uuid.UUID, direction enums.HandoverDirection) (*models.HandoverCode, error) {
	var code models.HandoverCode
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND direction = ? AND consumed_at IS NULL AND superseded_at IS NULL", orderID, direction).
		Order("issued_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

func (r *repository) SupersedeActive(ctx context.Context, orderID uuid.UUID, direction enums.HandoverDirection, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.HandoverCode{}).
		Where("order_id = ? AND direction = ? AND consumed_at IS NULL AND superseded_at IS NULL", orderID, direction).
		Update("superseded_at", at).Error
}

// MarkConsumed flips consumed_at exactly once. Returns rows affected so the
// caller can detect an already-consumed code.
func (r *repository) MarkConsumed(ctx context.Context, codeID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.HandoverCode{}).
		Where("id = ? AND consumed_at IS NULL", codeID).
		Update("consumed_at", at)
	return res.RowsAffected, res.Error
}
