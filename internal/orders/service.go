package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/internal/handover"
	"github.com/rentloop/rentloop-backend/internal/negotiations"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/metrics"
	"github.com/rentloop/rentloop-backend/pkg/outbox"
	"github.com/rentloop/rentloop-backend/pkg/outbox/payloads"
	"github.com/rentloop/rentloop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type listingSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type paymentProcessor interface {
	CreateSession(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error)
	VerifyAndSettle(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error)
	ConfirmCash(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentSession, error)
}

// Service is the order state machine: it owns every status transition, its
// actor and pre-state guards, and the side effects each transition carries.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Accept(ctx context.Context, input DecisionInput) (*models.Order, error)
	Decline(ctx context.Context, input DecisionInput) (*models.Order, error)
	Cancel(ctx context.Context, input DecisionInput) (*models.Order, error)
	CreatePaymentSession(ctx context.Context, input PaymentInput) (*models.PaymentSession, error)
	PayStripe(ctx context.Context, input PaymentInput) (*models.Order, error)
	PayCOD(ctx context.Context, input PaymentInput) (*models.Order, error)
	VerifyCOD(ctx context.Context, input PaymentInput) (*models.Order, error)
	ScanDelivery(ctx context.Context, input ScanInput) (*models.Order, error)
	ScanReturn(ctx context.Context, input ScanInput) (*models.Order, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	listings listingSource
	ledger   negotiations.Repository
	payments paymentProcessor
	codes    handover.Issuer
	outbox   outboxPublisher
	metrics  *metrics.OrderMetrics
}

// NewService builds the order state machine with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	listings listingSource,
	ledger negotiations.Repository,
	payments paymentProcessor,
	codes handover.Issuer,
	publisher outboxPublisher,
	orderMetrics *metrics.OrderMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if listings == nil {
		return nil, fmt.Errorf("listing source required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("negotiation ledger required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if codes == nil {
		return nil, fmt.Errorf("handover code issuer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		listings: listings,
		ledger:   ledger,
		payments: payments,
		codes:    codes,
		outbox:   publisher,
		metrics:  orderMetrics,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listing, err := s.listings.FindByID(ctx, input.ListingID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if !listing.Available {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not available")
		}
		if listing.SellerID == input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot rent your own listing")
		}

		negotiable := listing.PriceType == enums.PriceTypeNegotiable
		if negotiable {
			if input.InitialOffer == nil || !input.InitialOffer.IsPositive() {
				return pkgerrors.New(pkgerrors.CodeValidation, "an opening offer is required for negotiable listings")
			}
		}

		order := &models.Order{
			BuyerID:       input.BuyerID,
			SellerID:      listing.SellerID,
			ListingID:     listing.ID,
			Currency:      listing.Currency,
			Status:        enums.OrderStatusPending,
			PriceType:     listing.PriceType,
			OriginalPrice: listing.Price,
			Quantity:      input.Quantity,
			Notes:         input.Notes,
			PaymentMethod: input.PaymentMethod,
		}
		order.FinalAmount = order.ComputeFinalAmount()

		created, err := s.repo.WithTx(tx).Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: RoleBuyer},
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:   created.ID,
				ListingID: created.ListingID,
				BuyerID:   created.BuyerID,
				SellerID:  created.SellerID,
				PriceType: created.PriceType,
				Amount:    created.FinalAmount,
				Currency:  created.Currency,
				Status:    created.Status,
				Method:    created.PaymentMethod,
			},
		}); err != nil {
			return err
		}

		if negotiable {
			entry, err := s.ledger.WithTx(tx).Append(ctx, &models.Negotiation{
				OrderID:    created.ID,
				FromUserID: input.BuyerID,
				Action:     enums.NegotiationActionOffer,
				Amount:     input.InitialOffer,
				Message:    input.OfferMessage,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record opening offer")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOfferRecorded,
				AggregateType: enums.AggregateNegotiation,
				AggregateID:   entry.ID,
				Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: RoleBuyer},
				Version:       1,
				Data: payloads.OfferRecordedEvent{
					OrderID:       created.ID,
					NegotiationID: entry.ID,
					FromUserID:    input.BuyerID,
					Action:        enums.NegotiationActionOffer,
					Amount:        input.InitialOffer,
				},
			}); err != nil {
				return err
			}
		}

		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(enums.OrderStatusPending.String())
	return result, nil
}

func (s *service) Accept(ctx context.Context, input DecisionInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		if order.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can accept an order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
		}
		if order.PriceType == enums.PriceTypeNegotiable {
			accepted, err := s.ledger.WithTx(tx).HasAccept(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check negotiation state")
			}
			if !accepted {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiated price is not resolved yet")
			}
		}

		now := time.Now().UTC()
		finalAmount := order.ComputeFinalAmount()
		if err := s.applyTransition(ctx, tx, order, enums.OrderStatusPending, map[string]any{
			"status":       enums.OrderStatusAccepted,
			"accepted_at":  now,
			"final_amount": finalAmount,
		}); err != nil {
			return err
		}
		order.Status = enums.OrderStatusAccepted
		order.AcceptedAt = &now
		order.FinalAmount = finalAmount

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAccepted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleSeller},
			Version:       1,
			Data: payloads.OrderAcceptedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				FinalAmount: finalAmount,
				AcceptedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusAccepted.String())
	return result, nil
}

func (s *service) Decline(ctx context.Context, input DecisionInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		if order.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can decline an order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
		}

		now := time.Now().UTC()
		if err := s.applyTransition(ctx, tx, order, enums.OrderStatusPending, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}); err != nil {
			return err
		}
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeclined,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleSeller},
			Version:       1,
			Data: payloads.OrderDeclinedEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				SellerID:   order.SellerID,
				Reason:     input.Reason,
				DeclinedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusCancelled.String())
	return result, nil
}

func (s *service) Cancel(ctx context.Context, input DecisionInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		role, err := partyRole(order, input.ActorID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		now := time.Now().UTC()
		if err := s.applyTransition(ctx, tx, order, order.Status, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}); err != nil {
			return err
		}
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: role},
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				CancelledBy: input.ActorID,
				Reason:      input.Reason,
				CancelledAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusCancelled.String())
	return result, nil
}

func (s *service) CreatePaymentSession(ctx context.Context, input PaymentInput) (*models.PaymentSession, error) {
	var session *models.PaymentSession
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for an order")
		}
		if order.Status != enums.OrderStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order must be accepted before payment")
		}

		created, err := s.payments.CreateSession(ctx, tx, order)
		if err != nil {
			return err
		}
		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) PayStripe(ctx context.Context, input PaymentInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for an order")
		}
		if order.PaymentMethod != enums.PaymentMethodStripe {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paying by card")
		}
		if order.Status != enums.OrderStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order must be accepted before payment")
		}

		session, err := s.payments.VerifyAndSettle(ctx, tx, order)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":  enums.OrderStatusPaid,
			"paid_at": now,
		}
		if session.ExternalRef != nil {
			updates["payment_ref"] = *session.ExternalRef
		}
		if err := s.applyTransition(ctx, tx, order, enums.OrderStatusAccepted, updates); err != nil {
			return err
		}
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		order.PaymentRef = session.ExternalRef

		if err := s.issueCode(ctx, tx, order, enums.HandoverDirectionDelivery); err != nil {
			return err
		}

		externalRef := ""
		if session.ExternalRef != nil {
			externalRef = *session.ExternalRef
		}
		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleBuyer},
			Version:       1,
			Data: payloads.PaymentSettledEvent{
				OrderID:     order.ID,
				Method:      enums.PaymentMethodStripe,
				Amount:      order.FinalAmount,
				Currency:    order.Currency,
				ExternalRef: externalRef,
				SettledAt:   now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusPaid.String())
	return result, nil
}

func (s *service) PayCOD(ctx context.Context, input PaymentInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for an order")
		}
		if order.PaymentMethod != enums.PaymentMethodCOD {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paying in cash")
		}
		if order.Status != enums.OrderStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order must be accepted before payment")
		}

		if _, err := s.payments.ConfirmCash(ctx, tx, order); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.applyTransition(ctx, tx, order, enums.OrderStatusAccepted, map[string]any{
			"status":       enums.OrderStatusPaid,
			"paid_at":      now,
			"cod_verified": false,
		}); err != nil {
			return err
		}
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &now
		order.CODVerified = false

		if err := s.issueCode(ctx, tx, order, enums.HandoverDirectionDelivery); err != nil {
			return err
		}

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCashCollected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleBuyer},
			Version:       1,
			Data: payloads.CashCollectedEvent{
				OrderID:     order.ID,
				CollectedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusPaid.String())
	return result, nil
}

func (s *service) VerifyCOD(ctx context.Context, input PaymentInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		if order.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can verify a cash payment")
		}
		if order.PaymentMethod != enums.PaymentMethodCOD {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paying in cash")
		}
		if order.Status != enums.OrderStatusPaid && order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid yet")
		}
		if order.CODVerified {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cash payment already verified")
		}

		now := time.Now().UTC()
		affected, err := s.repo.WithTx(tx).MarkCODVerified(ctx, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify cash payment")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cash payment already verified")
		}
		order.CODVerified = true
		order.CODVerifiedAt = &now

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCashVerified,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleSeller},
			Version:       1,
			Data: payloads.CashVerifiedEvent{
				OrderID:    order.ID,
				VerifiedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ScanDelivery(ctx context.Context, input ScanInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		payload, err := handover.ParsePayload(input.Payload)
		if err != nil {
			return err
		}
		if payload.OrderID != order.ID || payload.Direction != enums.HandoverDirectionDelivery {
			return pkgerrors.New(pkgerrors.CodeInvalidHandoverCode, "code does not belong to this handover")
		}
		if order.Status != enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for delivery")
		}

		code, err := s.codes.Verify(ctx, tx, order, enums.HandoverDirectionDelivery, payload.Secret, input.ActorID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.applyTransition(ctx, tx, order, enums.OrderStatusPaid, map[string]any{
			"status":              enums.OrderStatusInProgress,
			"delivery_scanned_at": now,
		}); err != nil {
			return err
		}
		order.Status = enums.OrderStatusInProgress
		order.DeliveryScannedAt = &now

		// the return leg opens as soon as delivery is confirmed
		if err := s.issueCode(ctx, tx, order, enums.HandoverDirectionReturn); err != nil {
			return err
		}

		result = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryScanned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleBuyer},
			Version:       1,
			Data: payloads.HandoverScannedEvent{
				OrderID:   order.ID,
				CodeID:    code.ID,
				Direction: enums.HandoverDirectionDelivery,
				ScannedBy: input.ActorID,
				ScannedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusInProgress.String())
	return result, nil
}

func (s *service) ScanReturn(ctx context.Context, input ScanInput) (*models.Order, error) {
	var result *models.Order
	err := s.transition(ctx, input.OrderID, input.ActorID, func(tx *gorm.DB, order *models.Order) error {
		payload, err := handover.ParsePayload(input.Payload)
		if err != nil {
			return err
		}
		if payload.OrderID != order.ID || payload.Direction != enums.HandoverDirectionReturn {
			return pkgerrors.New(pkgerrors.CodeInvalidHandoverCode, "code does not belong to this handover")
		}
		if order.Status != enums.OrderStatusInProgress || order.DeliveryScannedAt == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not out for return")
		}

		code, err := s.codes.Verify(ctx, tx, order, enums.HandoverDirectionReturn, payload.Secret, input.ActorID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.applyTransition(ctx, tx, order, enums.OrderStatusInProgress, map[string]any{
			"status":            enums.OrderStatusCompleted,
			"return_scanned_at": now,
			"completed_at":      now,
			"qr_code_data":      nil,
		}); err != nil {
			return err
		}
		order.Status = enums.OrderStatusCompleted
		order.ReturnScannedAt = &now
		order.CompletedAt = &now
		order.QRCodeData = nil

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnScanned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleSeller},
			Version:       1,
			Data: payloads.HandoverScannedEvent{
				OrderID:   order.ID,
				CodeID:    code.ID,
				Direction: enums.HandoverDirectionReturn,
				ScannedBy: input.ActorID,
				ScannedAt: now,
			},
		}); err != nil {
			return err
		}

		result = order
		// completion is recorded at most once per order
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: RoleSeller},
			Version:       1,
			Data: payloads.OrderCompletedEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				CompletedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(enums.OrderStatusCompleted.String())
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if _, err := partyRole(order, actorID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	list, err := s.repo.ListForUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// transition loads the order inside a transaction and hands it to fn. Every
// status-changing operation funnels through here.
func (s *service) transition(ctx context.Context, orderID, actorID uuid.UUID, fn func(tx *gorm.DB, order *models.Order) error) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		return fn(tx, order)
	})
}

// applyTransition performs the optimistic compare-and-set on the order status.
// Zero affected rows means another request moved the order first.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, expected enums.OrderStatus, updates map[string]any) error {
	target := fmt.Sprint(updates["status"])
	affected, err := s.repo.WithTx(tx).UpdateStatusConditional(ctx, order.ID, expected, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if affected == 0 {
		s.metrics.IncConflict(target)
		return pkgerrors.New(pkgerrors.CodeConcurrentModification, "order was modified concurrently, retry")
	}
	return nil
}

func (s *service) issueCode(ctx context.Context, tx *gorm.DB, order *models.Order, direction enums.HandoverDirection) error {
	_, payload, err := s.codes.Issue(ctx, tx, order, direction)
	if err != nil {
		return err
	}
	if err := s.repo.WithTx(tx).UpdateFields(ctx, order.ID, map[string]any{
		"qr_code_data": payload,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store handover payload")
	}
	order.QRCodeData = &payload
	return nil
}

func partyRole(order *models.Order, actorID uuid.UUID) (string, error) {
	switch actorID {
	case order.BuyerID:
		return RoleBuyer, nil
	case order.SellerID:
		return RoleSeller, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
	}
}
