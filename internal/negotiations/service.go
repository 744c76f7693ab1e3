package negotiations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/outbox"
	"github.com/rentloop/rentloop-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service resolves negotiation actions for one order into an authoritative
// unit price. The ledger is append-only; entries are never mutated.
type Service interface {
	RecordOffer(ctx context.Context, input OfferInput) (*models.Negotiation, error)
	RecordAccept(ctx context.Context, input AcceptInput) (*models.Negotiation, error)
	RecordDecline(ctx context.Context, input DeclineInput) (*models.Negotiation, error)
	CurrentPrice(ctx context.Context, orderID uuid.UUID) (*decimal.Decimal, error)
	History(ctx context.Context, orderID, actorID uuid.UUID) ([]models.Negotiation, error)
}

// OfferInput carries one offer or counter proposal.
type OfferInput struct {
	OrderID    uuid.UUID
	FromUserID uuid.UUID
	Amount     decimal.Decimal
	Message    *string
}

// AcceptInput accepts the latest outstanding proposal.
type AcceptInput struct {
	OrderID    uuid.UUID
	FromUserID uuid.UUID
}

// DeclineInput closes the outstanding proposal without accepting it.
type DeclineInput struct {
	OrderID    uuid.UUID
	FromUserID uuid.UUID
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds a negotiation ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("negotiations repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) RecordOffer(ctx context.Context, input OfferInput) (*models.Negotiation, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.FromUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer amount must be positive")
	}

	var entry *models.Negotiation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForParty(ctx, repo, input.OrderID, input.FromUserID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation is closed for this order")
		}
		if order.PriceType != enums.PriceTypeNegotiable {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "price is not negotiable for this order")
		}

		hasProposal, err := repo.HasProposal(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect ledger")
		}
		action := enums.NegotiationActionOffer
		if hasProposal {
			action = enums.NegotiationActionCounter
		}

		amount := input.Amount
		entry, err = repo.Append(ctx, &models.Negotiation{
			OrderID:    order.ID,
			FromUserID: input.FromUserID,
			Action:     action,
			Amount:     &amount,
			Message:    input.Message,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferRecorded,
			AggregateType: enums.AggregateNegotiation,
			AggregateID:   entry.ID,
			Actor:         &outbox.ActorRef{UserID: input.FromUserID},
			Version:       1,
			Data: payloads.OfferRecordedEvent{
				OrderID:       order.ID,
				NegotiationID: entry.ID,
				FromUserID:    input.FromUserID,
				Action:        action,
				Amount:        &amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RecordAccept(ctx context.Context, input AcceptInput) (*models.Negotiation, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.FromUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var entry *models.Negotiation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForParty(ctx, repo, input.OrderID, input.FromUserID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation is closed for this order")
		}

		latest, err := repo.FindLatestProposal(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect ledger")
		}
		if latest == nil || latest.Amount == nil {
			return pkgerrors.New(pkgerrors.CodeNoActiveOffer, "no outstanding offer to accept")
		}
		if latest.FromUserID == input.FromUserID {
			return pkgerrors.New(pkgerrors.CodeSelfAccept, "cannot accept your own offer")
		}

		amount := *latest.Amount
		entry, err = repo.Append(ctx, &models.Negotiation{
			OrderID:    order.ID,
			FromUserID: input.FromUserID,
			Action:     enums.NegotiationActionAccept,
			Amount:     &amount,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		finalAmount := amount.Mul(decimal.NewFromInt(int64(order.Quantity)))
		acceptedAt := time.Now().UTC()
		affected, err := repo.ApplyAcceptedPrice(ctx, order.ID, amount, finalAmount, acceptedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply accepted price")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order changed concurrently")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferAccepted,
			AggregateType: enums.AggregateNegotiation,
			AggregateID:   entry.ID,
			Actor:         &outbox.ActorRef{UserID: input.FromUserID},
			Version:       1,
			Data: payloads.OfferAcceptedEvent{
				OrderID:       order.ID,
				NegotiationID: entry.ID,
				FromUserID:    input.FromUserID,
				Amount:        amount,
			},
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAccepted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.FromUserID},
			Version:       1,
			Data: payloads.OrderAcceptedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				FinalAmount: finalAmount,
				AcceptedAt:  acceptedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RecordDecline(ctx context.Context, input DeclineInput) (*models.Negotiation, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.FromUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var entry *models.Negotiation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForParty(ctx, repo, input.OrderID, input.FromUserID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation is closed for this order")
		}

		latest, err := repo.FindLatestProposal(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect ledger")
		}
		if latest == nil {
			return pkgerrors.New(pkgerrors.CodeNoActiveOffer, "no outstanding offer to decline")
		}

		entry, err = repo.Append(ctx, &models.Negotiation{
			OrderID:    order.ID,
			FromUserID: input.FromUserID,
			Action:     enums.NegotiationActionDecline,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferDeclined,
			AggregateType: enums.AggregateNegotiation,
			AggregateID:   entry.ID,
			Actor:         &outbox.ActorRef{UserID: input.FromUserID},
			Version:       1,
			Data: payloads.OfferDeclinedEvent{
				OrderID:       order.ID,
				NegotiationID: entry.ID,
				FromUserID:    input.FromUserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) CurrentPrice(ctx context.Context, orderID uuid.UUID) (*decimal.Decimal, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	latest, err := s.repo.FindLatestProposal(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect ledger")
	}
	if latest == nil {
		return nil, nil
	}
	return latest.Amount, nil
}

func (s *service) History(ctx context.Context, orderID, actorID uuid.UUID) ([]models.Negotiation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.loadOrderForParty(ctx, s.repo, orderID, actorID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

func (s *service) loadOrderForParty(ctx context.Context, repo Repository, orderID, actorID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerID != actorID && order.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
	}
	return order, nil
}
