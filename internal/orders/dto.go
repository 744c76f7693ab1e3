package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// CreateOrderInput captures everything a renter submits when opening an order.
// InitialOffer is required when the listing price is negotiable and ignored
// otherwise.
type CreateOrderInput struct {
	ListingID     uuid.UUID
	BuyerID       uuid.UUID
	Quantity      int
	PaymentMethod enums.PaymentMethod
	Notes         *string
	InitialOffer  *decimal.Decimal
	OfferMessage  *string
}

// DecisionInput identifies the order and acting party for accept, decline,
// and cancel moves.
type DecisionInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  string
}

// PaymentInput identifies the order and paying buyer.
type PaymentInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
}

// ScanInput carries a scanned handover payload through a transition.
type ScanInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Payload string
}

// ListFilters narrow the user's order list.
type ListFilters struct {
	Status *enums.OrderStatus
	Role   string
}

// Roles accepted by ListFilters.Role.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// OrderList wraps one page of orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
