package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

// Order is the transactional aggregate binding a buyer, seller, and listing.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID           uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID          uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	ListingID         uuid.UUID           `gorm:"column:listing_id;type:uuid;not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status            enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PriceType         enums.PriceType     `gorm:"column:price_type;type:price_type;not null"`
	OriginalPrice     decimal.Decimal     `gorm:"column:original_price;type:numeric(12,2);not null"`
	NegotiatedPrice   *decimal.Decimal    `gorm:"column:negotiated_price;type:numeric(12,2)"`
	FinalAmount       decimal.Decimal     `gorm:"column:final_amount;type:numeric(12,2);not null"`
	Quantity          int                 `gorm:"column:quantity;not null;default:1"`
	Notes             *string             `gorm:"column:notes"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'stripe'"`
	PaymentRef        *string             `gorm:"column:payment_ref"`
	CODVerified       bool                `gorm:"column:cod_verified;not null;default:false"`
	CODVerifiedAt     *time.Time          `gorm:"column:cod_verified_at"`
	DeliveryScannedAt *time.Time          `gorm:"column:delivery_scanned_at"`
	ReturnScannedAt   *time.Time          `gorm:"column:return_scanned_at"`
	QRCodeData        *string             `gorm:"column:qr_code_data"`
	AcceptedAt        *time.Time          `gorm:"column:accepted_at"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	CompletedAt       *time.Time          `gorm:"column:completed_at"`
	Negotiations      []Negotiation       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	HandoverCodes     []HandoverCode      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentSession    *PaymentSession     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// UnitPrice returns the negotiated unit price when one was accepted, otherwise
// the listing price captured at order time.
func (o Order) UnitPrice() decimal.Decimal {
	if o.NegotiatedPrice != nil {
		return *o.NegotiatedPrice
	}
	return o.OriginalPrice
}

// ComputeFinalAmount recomputes the total owed from the effective unit price.
func (o Order) ComputeFinalAmount() decimal.Decimal {
	return o.UnitPrice().Mul(decimal.NewFromInt(int64(o.Quantity)))
}
