package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateNegotiation  OutboxAggregateType = "negotiation"
	AggregateHandoverCode OutboxAggregateType = "handover_code"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateNegotiation,
	AggregateHandoverCode,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderAccepted      OutboxEventType = "order_accepted"
	EventOrderDeclined      OutboxEventType = "order_declined"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventOfferRecorded      OutboxEventType = "offer_recorded"
	EventOfferAccepted      OutboxEventType = "offer_accepted"
	EventOfferDeclined      OutboxEventType = "offer_declined"
	EventPaymentSettled     OutboxEventType = "payment_settled"
	EventCashCollected      OutboxEventType = "cash_collected"
	EventCashVerified       OutboxEventType = "cash_verified"
	EventDeliveryScanned    OutboxEventType = "delivery_scanned"
	EventReturnScanned      OutboxEventType = "return_scanned"
	EventOrderCompleted     OutboxEventType = "order_completed"
	EventHandoverCodeIssued OutboxEventType = "handover_code_issued"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderAccepted,
	EventOrderDeclined,
	EventOrderCancelled,
	EventOfferRecorded,
	EventOfferAccepted,
	EventOfferDeclined,
	EventPaymentSettled,
	EventCashCollected,
	EventCashVerified,
	EventDeliveryScanned,
	EventReturnScanned,
	EventOrderCompleted,
	EventHandoverCodeIssued,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
