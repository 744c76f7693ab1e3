package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/api/middleware"
	"github.com/rentloop/rentloop-backend/internal/negotiations"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/logger"
)

type testNegotiationsService struct {
	offerFn   func(ctx context.Context, input negotiations.OfferInput) (*models.Negotiation, error)
	acceptFn  func(ctx context.Context, input negotiations.AcceptInput) (*models.Negotiation, error)
	declineFn func(ctx context.Context, input negotiations.DeclineInput) (*models.Negotiation, error)
	priceFn   func(ctx context.Context, orderID uuid.UUID) (*decimal.Decimal, error)
	historyFn func(ctx context.Context, orderID, actorID uuid.UUID) ([]models.Negotiation, error)
}

func (s *testNegotiationsService) RecordOffer(ctx context.Context, input negotiations.OfferInput) (*models.Negotiation, error) {
	if s.offerFn != nil {
		return s.offerFn(ctx, input)
	}
	return &models.Negotiation{OrderID: input.OrderID}, nil
}

func (s *testNegotiationsService) RecordAccept(ctx context.Context, input negotiations.AcceptInput) (*models.Negotiation, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, input)
	}
	return &models.Negotiation{OrderID: input.OrderID}, nil
}

func (s *testNegotiationsService) RecordDecline(ctx context.Context, input negotiations.DeclineInput) (*models.Negotiation, error) {
	if s.declineFn != nil {
		return s.declineFn(ctx, input)
	}
	return &models.Negotiation{OrderID: input.OrderID}, nil
}

func (s *testNegotiationsService) CurrentPrice(ctx context.Context, orderID uuid.UUID) (*decimal.Decimal, error) {
	if s.priceFn != nil {
		return s.priceFn(ctx, orderID)
	}
	price := decimal.RequireFromString("10.00")
	return &price, nil
}

func (s *testNegotiationsService) History(ctx context.Context, orderID, actorID uuid.UUID) ([]models.Negotiation, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, orderID, actorID)
	}
	return []models.Negotiation{}, nil
}

func negotiationTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func negotiationRequest(t *testing.T, method, target string, body string, userID uuid.UUID, orderID string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestNegotiationOfferRecordsCounter(t *testing.T) {
	orderID := uuid.New()
	actorID := uuid.New()
	var captured negotiations.OfferInput
	svc := &testNegotiationsService{
		offerFn: func(ctx context.Context, input negotiations.OfferInput) (*models.Negotiation, error) {
			captured = input
			return &models.Negotiation{OrderID: input.OrderID, FromUserID: input.FromUserID}, nil
		},
	}

	req := negotiationRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/negotiations",
		`{"amount":"7.25","message":"meet in the middle"}`, actorID, orderID.String())
	resp := httptest.NewRecorder()
	NegotiationOffer(svc, negotiationTestLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID || captured.FromUserID != actorID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if !captured.Amount.Equal(decimal.RequireFromString("7.25")) {
		t.Fatalf("unexpected amount %s", captured.Amount)
	}
	if captured.Message == nil || *captured.Message != "meet in the middle" {
		t.Fatalf("unexpected message %v", captured.Message)
	}
}

func TestNegotiationOfferRejectsBadAmount(t *testing.T) {
	orderID := uuid.NewString()
	req := negotiationRequest(t, http.MethodPost, "/api/v1/orders/"+orderID+"/negotiations",
		`{"amount":"seven"}`, uuid.New(), orderID)
	resp := httptest.NewRecorder()
	NegotiationOffer(&testNegotiationsService{}, negotiationTestLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestNegotiationAcceptSurfacesNoActiveOffer(t *testing.T) {
	svc := &testNegotiationsService{
		acceptFn: func(ctx context.Context, input negotiations.AcceptInput) (*models.Negotiation, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNoActiveOffer, "no pending offer on order")
		},
	}

	orderID := uuid.NewString()
	req := negotiationRequest(t, http.MethodPost, "/api/v1/orders/"+orderID+"/negotiations/accept", "", uuid.New(), orderID)
	resp := httptest.NewRecorder()
	NegotiationAccept(svc, negotiationTestLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "no pending offer on order") {
		t.Fatalf("expected typed message surfaced, got %s", resp.Body.String())
	}
}

func TestNegotiationHistoryPassesActor(t *testing.T) {
	orderID := uuid.New()
	actorID := uuid.New()
	var gotOrder, gotActor uuid.UUID
	svc := &testNegotiationsService{
		historyFn: func(ctx context.Context, oid, aid uuid.UUID) ([]models.Negotiation, error) {
			gotOrder, gotActor = oid, aid
			return []models.Negotiation{{OrderID: oid}}, nil
		},
	}

	req := negotiationRequest(t, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/negotiations", "", actorID, orderID.String())
	resp := httptest.NewRecorder()
	NegotiationHistory(svc, negotiationTestLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotOrder != orderID || gotActor != actorID {
		t.Fatalf("expected %s/%s got %s/%s", orderID, actorID, gotOrder, gotActor)
	}
}

func TestNegotiationCurrentPriceResponds(t *testing.T) {
	orderID := uuid.NewString()
	req := negotiationRequest(t, http.MethodGet, "/api/v1/orders/"+orderID+"/negotiations/price", "", uuid.New(), orderID)
	resp := httptest.NewRecorder()
	NegotiationCurrentPrice(&testNegotiationsService{}, negotiationTestLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "current_price") {
		t.Fatalf("expected price field, got %s", resp.Body.String())
	}
}

func TestNegotiationDeclineRejectsBadOrderID(t *testing.T) {
	req := negotiationRequest(t, http.MethodPost, "/api/v1/orders/nope/negotiations/decline", "", uuid.New(), "nope")
	resp := httptest.NewRecorder()
	NegotiationDecline(&testNegotiationsService{}, negotiationTestLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
