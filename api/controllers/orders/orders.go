package orders

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/api/middleware"
	"github.com/rentloop/rentloop-backend/api/responses"
	"github.com/rentloop/rentloop-backend/api/validators"
	internalorders "github.com/rentloop/rentloop-backend/internal/orders"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/pagination"
)

type createOrderRequest struct {
	ListingID     string  `json:"listing_id" validate:"required,uuid4"`
	Quantity      int     `json:"quantity" validate:"required,min=1"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Notes         *string `json:"notes,omitempty"`
	InitialOffer  *string `json:"initial_offer,omitempty"`
	OfferMessage  *string `json:"offer_message,omitempty"`
}

type scanRequest struct {
	Payload string `json:"payload" validate:"required"`
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Create opens a new rental order for the authenticated buyer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := uuid.Parse(payload.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id"))
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid payment_method %q", payload.PaymentMethod)))
			return
		}

		input := internalorders.CreateOrderInput{
			ListingID:     listingID,
			BuyerID:       actorID,
			Quantity:      payload.Quantity,
			PaymentMethod: method,
			Notes:         payload.Notes,
			OfferMessage:  payload.OfferMessage,
		}

		if payload.InitialOffer != nil {
			offer, err := decimal.NewFromString(strings.TrimSpace(*payload.InitialOffer))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid initial_offer"))
				return
			}
			input.InitialOffer = &offer
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns a cursor page of the authenticated user's orders.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters internalorders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid status %q", raw)))
				return
			}
			filters.Status = &status
		}
		if role := strings.TrimSpace(r.URL.Query().Get("role")); role != "" {
			if role != internalorders.RoleBuyer && role != internalorders.RoleSeller {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer or seller"))
				return
			}
			filters.Role = role
		}

		list, err := svc.ListForUser(r.Context(), actorID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns a single order visible to the acting party.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Accept confirms a pending order as the seller.
func Accept(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.DecisionInput) (any, error) {
		return s.Accept(r.Context(), input)
	})
}

// Decline rejects a pending order as the seller.
func Decline(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.DecisionInput) (any, error) {
		return s.Decline(r.Context(), input)
	})
}

// Cancel withdraws an order before it is paid. Either party may cancel.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.DecisionInput) (any, error) {
		return s.Cancel(r.Context(), input)
	})
}

// CreatePaymentSession opens (or returns the existing) checkout session for
// an accepted card order.
func CreatePaymentSession(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		input, err := paymentInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreatePaymentSession(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// PayStripe settles an accepted card order once the provider confirms payment.
func PayStripe(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.PaymentInput) (any, error) {
		return s.PayStripe(r.Context(), input)
	})
}

// PayCOD marks an accepted cash order as paid pending seller verification.
func PayCOD(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.PaymentInput) (any, error) {
		return s.PayCOD(r.Context(), input)
	})
}

// VerifyCOD lets the seller confirm the cash was actually received.
func VerifyCOD(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.PaymentInput) (any, error) {
		return s.VerifyCOD(r.Context(), input)
	})
}

// ScanDelivery redeems the delivery handover code and starts the rental.
func ScanDelivery(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return scanHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.ScanInput) (any, error) {
		return s.ScanDelivery(r.Context(), input)
	})
}

// ScanReturn redeems the return handover code and completes the order.
func ScanReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return scanHandler(svc, logg, func(s internalorders.Service, r *http.Request, input internalorders.ScanInput) (any, error) {
		return s.ScanReturn(r.Context(), input)
	})
}

func decisionHandler(svc internalorders.Service, logg *logger.Logger, call func(internalorders.Service, *http.Request, internalorders.DecisionInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.DecisionInput{OrderID: orderID, ActorID: actorID}
		if r.ContentLength > 0 {
			var payload reasonRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Reason = strings.TrimSpace(payload.Reason)
		}

		order, err := call(svc, r, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func paymentHandler(svc internalorders.Service, logg *logger.Logger, call func(internalorders.Service, *http.Request, internalorders.PaymentInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		input, err := paymentInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := call(svc, r, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func scanHandler(svc internalorders.Service, logg *logger.Logger, call func(internalorders.Service, *http.Request, internalorders.ScanInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := parseUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload scanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.ScanInput{
			OrderID: orderID,
			ActorID: actorID,
			Payload: strings.TrimSpace(payload.Payload),
		}

		order, err := call(svc, r, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func paymentInput(r *http.Request) (internalorders.PaymentInput, error) {
	actorID, err := parseUserID(r)
	if err != nil {
		return internalorders.PaymentInput{}, err
	}
	orderID, err := parseOrderID(r)
	if err != nil {
		return internalorders.PaymentInput{}, err
	}
	return internalorders.PaymentInput{OrderID: orderID, ActorID: actorID}, nil
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return parsed, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return parsed, nil
}
