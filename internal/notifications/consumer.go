package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/outbox"
	"github.com/rentloop/rentloop-backend/pkg/outbox/idempotency"
	"github.com/rentloop/rentloop-backend/pkg/outbox/payloads"
	"github.com/rentloop/rentloop-backend/pkg/outbox/registry"
)

const orderNotificationConsumer = "order-notifications"

type notificationCreator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type orderSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Consumer watches order lifecycle events and turns them into in-app
// notification rows for the affected parties.
type Consumer struct {
	repo         notificationCreator
	orders       orderSource
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo notificationCreator, orders orderSource, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		orders:       orders,
		subscription: subscription,
		idempotency:  manager,
		decoders:     newEventDecoders(),
		logg:         logg,
	}, nil
}

func newEventDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderAccepted, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.OrderAcceptedEvent
		return &data, json.Unmarshal(payload, &data)
	})
	decoders.Register(enums.EventOrderDeclined, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.OrderDeclinedEvent
		return &data, json.Unmarshal(payload, &data)
	})
	decoders.Register(enums.EventOfferRecorded, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.OfferRecordedEvent
		return &data, json.Unmarshal(payload, &data)
	})
	decoders.Register(enums.EventPaymentSettled, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.PaymentSettledEvent
		return &data, json.Unmarshal(payload, &data)
	})
	decoders.Register(enums.EventCashCollected, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.CashCollectedEvent
		return &data, json.Unmarshal(payload, &data)
	})
	decoders.Register(enums.EventCashVerified, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.CashVerifiedEvent
		return &data, json.Unmarshal(payload, &data)
	})
	decoders.Register(enums.EventDeliveryScanned, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.HandoverScannedEvent
		return &data, json.Unmarshal(payload, &data)
	})
	decoders.Register(enums.EventOrderCompleted, 1, func(payload json.RawMessage) (interface{}, error) {
		var data payloads.OrderCompletedEvent
		return &data, json.Unmarshal(payload, &data)
	})
	return decoders
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Info(logCtx, "event not handled")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, decoded); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, decoded interface{}) error {
	switch payload := decoded.(type) {
	case *payloads.OrderAcceptedEvent:
		return c.notify(ctx, payload.BuyerID, payload.OrderID, enums.NotificationTypeOrderAccepted,
			"Order accepted",
			fmt.Sprintf("Your order %s was accepted. Total: %s.", shortID(payload.OrderID), payload.FinalAmount.StringFixed(2)))
	case *payloads.OrderDeclinedEvent:
		message := fmt.Sprintf("Your order %s was declined.", shortID(payload.OrderID))
		if payload.Reason != "" {
			message = fmt.Sprintf("Your order %s was declined: %s", shortID(payload.OrderID), payload.Reason)
		}
		return c.notify(ctx, payload.BuyerID, payload.OrderID, enums.NotificationTypeOrderDeclined, "Order declined", message)
	case *payloads.OfferRecordedEvent:
		return c.notifyOfferRecorded(ctx, payload)
	case *payloads.PaymentSettledEvent:
		return c.notifyPaymentSettled(ctx, payload)
	case *payloads.CashCollectedEvent:
		return c.notifyCashCollected(ctx, payload)
	case *payloads.CashVerifiedEvent:
		order, err := c.orders.FindByID(ctx, payload.OrderID)
		if err != nil {
			return err
		}
		return c.notify(ctx, order.BuyerID, order.ID, enums.NotificationTypeCashVerified,
			"Cash payment verified",
			fmt.Sprintf("The owner confirmed the cash payment for order %s.", shortID(order.ID)))
	case *payloads.HandoverScannedEvent:
		order, err := c.orders.FindByID(ctx, payload.OrderID)
		if err != nil {
			return err
		}
		return c.notify(ctx, order.SellerID, order.ID, enums.NotificationTypeDeliveryScanned,
			"Item delivered",
			fmt.Sprintf("The renter confirmed delivery for order %s.", shortID(order.ID)))
	case *payloads.OrderCompletedEvent:
		// notify both sides even if one write fails
		var errs []error
		errs = append(errs, c.notify(ctx, payload.BuyerID, payload.OrderID, enums.NotificationTypeOrderCompleted,
			"Rental completed",
			fmt.Sprintf("Order %s is complete. Thanks for renting!", shortID(payload.OrderID))))
		errs = append(errs, c.notify(ctx, payload.SellerID, payload.OrderID, enums.NotificationTypeOrderCompleted,
			"Rental completed",
			fmt.Sprintf("Order %s is complete. The item was returned.", shortID(payload.OrderID))))
		return multierr.Combine(errs...)
	default:
		return fmt.Errorf("unsupported event type %s", eventType)
	}
}

func (c *Consumer) notifyOfferRecorded(ctx context.Context, payload *payloads.OfferRecordedEvent) error {
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	recipient := order.SellerID
	if payload.FromUserID == order.SellerID {
		recipient = order.BuyerID
	}
	amount := ""
	if payload.Amount != nil {
		amount = " at " + payload.Amount.StringFixed(2)
	}
	return c.notify(ctx, recipient, order.ID, enums.NotificationTypeOfferReceived,
		"New offer",
		fmt.Sprintf("You received a price %s%s on order %s.", payload.Action, amount, shortID(order.ID)))
}

func (c *Consumer) notifyCashCollected(ctx context.Context, payload *payloads.CashCollectedEvent) error {
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	return multierr.Combine(
		c.notify(ctx, order.BuyerID, order.ID, enums.NotificationTypePaymentConfirmed,
			"Cash payment recorded",
			fmt.Sprintf("Cash payment for order %s is recorded and awaiting the owner's confirmation.", shortID(order.ID))),
		c.notify(ctx, order.SellerID, order.ID, enums.NotificationTypePaymentConfirmed,
			"Cash payment to verify",
			fmt.Sprintf("The renter marked order %s as paid in cash. Confirm once you receive it.", shortID(order.ID))),
	)
}

func (c *Consumer) notifyPaymentSettled(ctx context.Context, payload *payloads.PaymentSettledEvent) error {
	order, err := c.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Payment of %s %s confirmed for order %s.", payload.Amount.StringFixed(2), payload.Currency, shortID(order.ID))
	return multierr.Combine(
		c.notify(ctx, order.BuyerID, order.ID, enums.NotificationTypePaymentConfirmed, "Payment confirmed", message),
		c.notify(ctx, order.SellerID, order.ID, enums.NotificationTypePaymentConfirmed, "Payment received", message),
	)
}

func (c *Consumer) notify(ctx context.Context, userID, orderID uuid.UUID, notificationType enums.NotificationType, title, message string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("recipient missing")
	}
	return c.repo.Create(ctx, &models.Notification{
		UserID:  userID,
		OrderID: orderID,
		Type:    notificationType,
		Title:   title,
		Message: message,
	})
}

func shortID(id uuid.UUID) string {
	raw := id.String()
	return raw[:8]
}
