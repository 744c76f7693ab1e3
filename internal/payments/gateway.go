package payments

import (
	"context"

	"github.com/rentloop/rentloop-backend/pkg/db/models"
)

// Session is the provider-side handle for a hosted checkout flow.
type Session struct {
	SessionID   string
	CheckoutURL string
}

// Verification reports the provider's settlement view of a session.
type Verification struct {
	Paid        bool
	Expired     bool
	ExternalRef string
}

// Gateway abstracts the payment provider so the order flow never touches
// provider SDK types directly.
type Gateway interface {
	CreateSession(ctx context.Context, order *models.Order) (*Session, error)
	VerifySession(ctx context.Context, sessionID string) (*Verification, error)
}
