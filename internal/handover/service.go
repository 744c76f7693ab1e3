package handover

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/outbox"
	"github.com/rentloop/rentloop-backend/pkg/outbox/payloads"
)

const defaultSecretBytes = 32

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Issuer produces and validates single-use handover codes. Both operations run
// inside the caller's transaction so code state and order state move together.
type Issuer interface {
	Issue(ctx context.Context, tx *gorm.DB, order *models.Order, direction enums.HandoverDirection) (*models.HandoverCode, string, error)
	Verify(ctx context.Context, tx *gorm.DB, order *models.Order, direction enums.HandoverDirection, secret string, actorID uuid.UUID) (*models.HandoverCode, error)
}

type issuer struct {
	repo        Repository
	outbox      outboxPublisher
	secretBytes int
}

// NewIssuer builds a handover code issuer with the required dependencies.
func NewIssuer(repo Repository, outboxSvc outboxPublisher, secretBytes int) (Issuer, error) {
	if repo == nil {
		return nil, fmt.Errorf("handover repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if secretBytes <= 0 {
		secretBytes = defaultSecretBytes
	}
	return &issuer{repo: repo, outbox: outboxSvc, secretBytes: secretBytes}, nil
}

// Issue mints a fresh secret for the order+direction, superseding any prior
// unconsumed code so at most one code is active per direction.
func (i *issuer) Issue(ctx context.Context, tx *gorm.DB, order *models.Order, direction enums.HandoverDirection) (*models.HandoverCode, string, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !direction.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid handover direction")
	}

	repo := i.repo.WithTx(tx)
	now := time.Now().UTC()
	if err := repo.SupersedeActive(ctx, order.ID, direction, now); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede prior code")
	}

	secret, err := i.generateSecret()
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate handover secret")
	}

	code, err := repo.Insert(ctx, &models.HandoverCode{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Direction: direction,
		Secret:    secret,
		IssuedAt:  now,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store handover code")
	}

	payload := EncodePayload(Payload{
		OrderID:   order.ID,
		Direction: direction,
		Secret:    secret,
	})

	err = i.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventHandoverCodeIssued,
		AggregateType: enums.AggregateHandoverCode,
		AggregateID:   code.ID,
		Version:       1,
		Data: payloads.HandoverCodeIssuedEvent{
			OrderID:   order.ID,
			CodeID:    code.ID,
			Direction: direction,
			IssuedAt:  now,
		},
	})
	if err != nil {
		return nil, "", err
	}

	return code, payload, nil
}

// Verify consumes the active code for the order+direction. The expected
// scanner is the buyer for delivery and the seller for return.
func (i *issuer) Verify(ctx context.Context, tx *gorm.DB, order *models.Order, direction enums.HandoverDirection, secret string, actorID uuid.UUID) (*models.HandoverCode, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid handover direction")
	}
	if expected := expectedScanner(order, direction); actorID != expected {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not the expected scanner")
	}

	repo := i.repo.WithTx(tx)
	code, err := repo.FindActive(ctx, order.ID, direction)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load handover code")
	}
	if code == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidHandoverCode, "no active code for this order")
	}
	if subtle.ConstantTimeCompare([]byte(code.Secret), []byte(secret)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidHandoverCode, "code does not match")
	}

	now := time.Now().UTC()
	affected, err := repo.MarkConsumed(ctx, code.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume handover code")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidHandoverCode, "code already consumed")
	}

	code.ConsumedAt = &now
	return code, nil
}

func (i *issuer) generateSecret() (string, error) {
	buf := make([]byte, i.secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func expectedScanner(order *models.Order, direction enums.HandoverDirection) uuid.UUID {
	if direction == enums.HandoverDirectionDelivery {
		return order.BuyerID
	}
	return order.SellerID
}
