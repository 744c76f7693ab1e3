package payments

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/metrics"
	"github.com/rentloop/rentloop-backend/pkg/redis"
)

const (
	sessionClaimTTL = 30 * time.Second

	// Fixed window capping provider lookups per order so a polling client
	// cannot hammer the checkout API.
	verifyWindow       = time.Minute
	maxVerifiesPerSpan = 10
)

// Service owns the payment session lifecycle for orders.
type Service interface {
	CreateSession(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error)
	VerifyAndSettle(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error)
	ConfirmCash(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error)
}

// SessionStore combines the claim and counter operations the service needs.
type SessionStore interface {
	redis.IdempotencyStore
	redis.CounterStore
}

type service struct {
	repo    Repository
	gateway Gateway
	store   SessionStore
	metrics *metrics.OrderMetrics
}

// NewService builds the payment service.
func NewService(repo Repository, gateway Gateway, store SessionStore, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment session repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	return &service{
		repo:    repo,
		gateway: gateway,
		store:   store,
		metrics: orderMetrics,
	}, nil
}

// CreateSession returns the order's hosted checkout session, creating it on
// first call. Repeat calls return the existing session instead of opening a
// second one at the provider.
func (s *service) CreateSession(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.PaymentMethod != enums.PaymentMethodStripe {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paying by card")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		// failed sessions get a fresh provider checkout below
		if existing.Status != enums.PaymentStatusFailed && existing.SessionID != nil {
			return existing, nil
		}
	}

	// short-lived claim so concurrent requests do not open duplicate
	// provider sessions before the row lands
	claimKey := s.store.IdempotencyKey("payment_session", order.ID.String())
	claimed, err := s.store.SetNX(ctx, claimKey, "1", sessionClaimTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment session")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrentModification, "payment session is being created, retry")
	}

	created, err := s.gateway.CreateSession(ctx, order)
	if err != nil {
		_ = s.store.Del(ctx, claimKey)
		return nil, err
	}

	if existing != nil {
		affected, err := repo.Reopen(ctx, existing.ID, created.SessionID, created.CheckoutURL)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		existing.Status = enums.PaymentStatusPending
		existing.SessionID = &created.SessionID
		existing.CheckoutURL = &created.CheckoutURL
		existing.ExternalRef = nil
		existing.SettledAt = nil
		return existing, nil
	}

	row := &models.PaymentSession{
		OrderID:     order.ID,
		Method:      enums.PaymentMethodStripe,
		Status:      enums.PaymentStatusPending,
		Amount:      order.FinalAmount,
		Currency:    order.Currency,
		SessionID:   &created.SessionID,
		CheckoutURL: &created.CheckoutURL,
	}
	inserted, err := repo.Insert(ctx, row)
	if err != nil {
		return nil, err
	}

	s.metrics.IncPaymentSession(enums.PaymentMethodStripe.String())
	return inserted, nil
}

// VerifyAndSettle asks the provider whether the session is paid and records
// the settlement. Unpaid sessions return PAYMENT_NOT_CONFIRMED so the caller
// never advances the order on an unsettled charge.
func (s *service) VerifyAndSettle(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	repo := s.repo.WithTx(tx)
	session, err := repo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.SessionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotConfirmed, "no checkout session for this order")
	}
	if session.Status == enums.PaymentStatusPaid {
		return session, nil
	}

	counterKey := s.store.CounterKey("payment_verify:" + order.ID.String())
	attempts, err := s.store.Incr(ctx, counterKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "throttle payment verification")
	}
	if attempts == 1 {
		_, _ = s.store.Expire(ctx, counterKey, verifyWindow)
	}
	if attempts > maxVerifiesPerSpan {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimited, "too many payment checks for this order")
	}

	verification, err := s.gateway.VerifySession(ctx, *session.SessionID)
	if err != nil {
		return nil, err
	}
	if !verification.Paid {
		if verification.Expired {
			if err := repo.MarkFailed(ctx, session.ID); err != nil {
				return nil, err
			}
			session.Status = enums.PaymentStatusFailed
			return nil, pkgerrors.New(pkgerrors.CodePaymentNotConfirmed, "checkout session expired, start a new checkout")
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotConfirmed, "payment has not been confirmed by the provider")
	}

	now := time.Now().UTC()
	if _, err := repo.MarkPaid(ctx, session.ID, verification.ExternalRef, now); err != nil {
		return nil, err
	}
	session.Status = enums.PaymentStatusPaid
	session.ExternalRef = &verification.ExternalRef
	session.SettledAt = &now
	return session, nil
}

// ConfirmCash records a cash-on-delivery collection as a settled session so
// card and cash orders share one settlement trail.
func (s *service) ConfirmCash(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.PaymentMethod != enums.PaymentMethodCOD {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paying in cash")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == enums.PaymentStatusPaid {
		return existing, nil
	}

	now := time.Now().UTC()
	if existing != nil {
		if _, err := repo.MarkPaid(ctx, existing.ID, "", now); err != nil {
			return nil, err
		}
		existing.Status = enums.PaymentStatusPaid
		existing.SettledAt = &now
		return existing, nil
	}

	row := &models.PaymentSession{
		OrderID:   order.ID,
		Method:    enums.PaymentMethodCOD,
		Status:    enums.PaymentStatusPaid,
		Amount:    order.FinalAmount,
		Currency:  order.Currency,
		SettledAt: &now,
	}
	inserted, err := repo.Insert(ctx, row)
	if err != nil {
		return nil, err
	}

	s.metrics.IncPaymentSession(enums.PaymentMethodCOD.String())
	return inserted, nil
}
