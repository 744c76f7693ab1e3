package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	pkgstripe "github.com/rentloop/rentloop-backend/pkg/stripe"
)

// StripeCheckoutClient exposes the subset of Stripe checkout operations used
// by the gateway.
type StripeCheckoutClient interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

var centsPerUnit = decimal.NewFromInt(100)

type stripeCheckoutWrapper struct{}

// NewStripeCheckoutClient wraps the initialized Stripe client so the gateway
// can be tested against a stub.
func NewStripeCheckoutClient(api *pkgstripe.Client) StripeCheckoutClient {
	if api == nil {
		return nil
	}
	return &stripeCheckoutWrapper{}
}

func (w *stripeCheckoutWrapper) Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}

func (w *stripeCheckoutWrapper) Get(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return session.Get(id, params)
}

type stripeGateway struct {
	client    StripeCheckoutClient
	returnURL string
}

// NewStripeGateway builds a Gateway backed by Stripe hosted checkout.
func NewStripeGateway(client StripeCheckoutClient, returnURL string) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe checkout client required")
	}
	returnURL = strings.TrimRight(strings.TrimSpace(returnURL), "/")
	if returnURL == "" {
		return nil, fmt.Errorf("checkout return url required")
	}
	return &stripeGateway{client: client, returnURL: returnURL}, nil
}

func (g *stripeGateway) CreateSession(ctx context.Context, order *models.Order) (*Session, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	amountCents := order.FinalAmount.Mul(centsPerUnit).IntPart()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(order.ID.String()),
		SuccessURL:        stripe.String(fmt.Sprintf("%s/%s?payment=success", g.returnURL, order.ID)),
		CancelURL:         stripe.String(fmt.Sprintf("%s/%s?payment=cancelled", g.returnURL, order.ID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(order.Currency.String())),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Rental order %s", order.ID)),
					},
				},
			},
		},
	}

	created, err := g.client.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable, try again")
	}
	return &Session{SessionID: created.ID, CheckoutURL: created.URL}, nil
}

func (g *stripeGateway) VerifySession(ctx context.Context, sessionID string) (*Verification, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	fetched, err := g.client.Get(ctx, sessionID, &stripe.CheckoutSessionParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable, try again")
	}

	verification := &Verification{
		Paid:    fetched.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Expired: fetched.Status == stripe.CheckoutSessionStatusExpired,
	}
	if fetched.PaymentIntent != nil {
		verification.ExternalRef = fetched.PaymentIntent.ID
	}
	return verification, nil
}
