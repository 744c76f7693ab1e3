package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// OrderCreatedEvent signals a new rental order placed by a renter.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID           `json:"order_id"`
	ListingID uuid.UUID           `json:"listing_id"`
	BuyerID   uuid.UUID           `json:"buyer_id"`
	SellerID  uuid.UUID           `json:"seller_id"`
	PriceType enums.PriceType     `json:"price_type"`
	Amount    decimal.Decimal     `json:"amount"`
	Currency  enums.Currency      `json:"currency"`
	Status    enums.OrderStatus   `json:"status"`
	Method    enums.PaymentMethod `json:"payment_method"`
}

// OrderAcceptedEvent is emitted when the owner accepts a pending order.
type OrderAcceptedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	AcceptedAt  time.Time       `json:"accepted_at"`
}

// OrderDeclinedEvent is emitted when the owner declines a pending order.
type OrderDeclinedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Reason     string    `json:"reason,omitempty"`
	DeclinedAt time.Time `json:"declined_at"`
}

// OrderCancelledEvent is emitted when either party cancels before payment.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// OfferRecordedEvent is emitted for every offer or counter appended to the ledger.
type OfferRecordedEvent struct {
	OrderID       uuid.UUID               `json:"order_id"`
	NegotiationID uuid.UUID               `json:"negotiation_id"`
	FromUserID    uuid.UUID               `json:"from_user_id"`
	Action        enums.NegotiationAction `json:"action"`
	Amount        *decimal.Decimal        `json:"amount,omitempty"`
}

// OfferAcceptedEvent locks the negotiated price onto the order.
type OfferAcceptedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	NegotiationID uuid.UUID       `json:"negotiation_id"`
	FromUserID    uuid.UUID       `json:"from_user_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// OfferDeclinedEvent closes the active negotiation thread.
type OfferDeclinedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	NegotiationID uuid.UUID `json:"negotiation_id"`
	FromUserID    uuid.UUID `json:"from_user_id"`
}

// PaymentSettledEvent reports a confirmed payment for an order.
type PaymentSettledEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	Method      enums.PaymentMethod `json:"method"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    enums.Currency      `json:"currency"`
	ExternalRef string              `json:"external_ref,omitempty"`
	SettledAt   time.Time           `json:"settled_at"`
}

// CashCollectedEvent marks a cash order as tentatively paid at handover.
type CashCollectedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CollectedAt time.Time `json:"collected_at"`
}

// CashVerifiedEvent confirms the owner acknowledged the cash payment.
type CashVerifiedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

// HandoverScannedEvent is emitted for both delivery and return scans.
type HandoverScannedEvent struct {
	OrderID   uuid.UUID               `json:"order_id"`
	CodeID    uuid.UUID               `json:"code_id"`
	Direction enums.HandoverDirection `json:"direction"`
	ScannedBy uuid.UUID               `json:"scanned_by"`
	ScannedAt time.Time               `json:"scanned_at"`
}

// OrderCompletedEvent closes out the rental after the return scan.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// HandoverCodeIssuedEvent is emitted whenever a fresh handover code is minted.
type HandoverCodeIssuedEvent struct {
	OrderID   uuid.UUID               `json:"order_id"`
	CodeID    uuid.UUID               `json:"code_id"`
	Direction enums.HandoverDirection `json:"direction"`
	IssuedAt  time.Time               `json:"issued_at"`
}
