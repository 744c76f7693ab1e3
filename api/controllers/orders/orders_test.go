package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/api/middleware"
	internalorders "github.com/rentloop/rentloop-backend/internal/orders"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/pagination"
)

type testOrdersService struct {
	createFn func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	acceptFn func(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error)
	scanFn   func(ctx context.Context, input internalorders.ScanInput) (*models.Order, error)
	listFn   func(ctx context.Context, userID uuid.UUID, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
}

func (s *testOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.Order{ID: uuid.New()}, nil
}

func (s *testOrdersService) Accept(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, input)
	}
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) Decline(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) Cancel(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) CreatePaymentSession(ctx context.Context, input internalorders.PaymentInput) (*models.PaymentSession, error) {
	return &models.PaymentSession{OrderID: input.OrderID}, nil
}

func (s *testOrdersService) PayStripe(ctx context.Context, input internalorders.PaymentInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) PayCOD(ctx context.Context, input internalorders.PaymentInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) VerifyCOD(ctx context.Context, input internalorders.PaymentInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) ScanDelivery(ctx context.Context, input internalorders.ScanInput) (*models.Order, error) {
	if s.scanFn != nil {
		return s.scanFn(ctx, input)
	}
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) ScanReturn(ctx context.Context, input internalorders.ScanInput) (*models.Order, error) {
	if s.scanFn != nil {
		return s.scanFn(ctx, input)
	}
	return &models.Order{ID: input.OrderID}, nil
}

func (s *testOrdersService) Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (s *testOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, params, filters)
	}
	return &internalorders.OrderList{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withOrderParam(req *http.Request, orderID string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateOrderSuccess(t *testing.T) {
	buyerID := uuid.New()
	listingID := uuid.New()
	var captured internalorders.CreateOrderInput
	svc := &testOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: uuid.New(), BuyerID: input.BuyerID}, nil
		},
	}

	body := `{"listing_id":"` + listingID.String() + `","quantity":2,"payment_method":"stripe","initial_offer":"8.50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = withUser(req, buyerID)
	resp := httptest.NewRecorder()
	Create(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.BuyerID != buyerID {
		t.Fatalf("expected buyer %s got %s", buyerID, captured.BuyerID)
	}
	if captured.ListingID != listingID {
		t.Fatalf("expected listing %s got %s", listingID, captured.ListingID)
	}
	if captured.Quantity != 2 {
		t.Fatalf("expected quantity 2 got %d", captured.Quantity)
	}
	if captured.PaymentMethod != enums.PaymentMethodStripe {
		t.Fatalf("unexpected payment method %s", captured.PaymentMethod)
	}
	if captured.InitialOffer == nil || !captured.InitialOffer.Equal(decimal.RequireFromString("8.50")) {
		t.Fatalf("expected initial offer 8.50 got %v", captured.InitialOffer)
	}
}

func TestCreateOrderRejectsBadPaymentMethod(t *testing.T) {
	body := `{"listing_id":"` + uuid.NewString() + `","quantity":1,"payment_method":"barter"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = withUser(req, uuid.New())
	resp := httptest.NewRecorder()
	Create(&testOrdersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateOrderRequiresUserContext(t *testing.T) {
	body := `{"listing_id":"` + uuid.NewString() + `","quantity":1,"payment_method":"stripe"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	Create(&testOrdersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAcceptPassesActorAndOrder(t *testing.T) {
	sellerID := uuid.New()
	orderID := uuid.New()
	var captured internalorders.DecisionInput
	svc := &testOrdersService{
		acceptFn: func(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: input.OrderID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/accept", nil)
	req = withUser(req, sellerID)
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	Accept(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID || captured.ActorID != sellerID {
		t.Fatalf("unexpected input %+v", captured)
	}
}

func TestAcceptSurfacesStateConflict(t *testing.T) {
	svc := &testOrdersService{
		acceptFn: func(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending")
		},
	}

	orderID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/accept", nil)
	req = withUser(req, uuid.New())
	req = withOrderParam(req, orderID)
	resp := httptest.NewRecorder()
	Accept(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Message != "order is not pending" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestScanDeliveryRequiresPayload(t *testing.T) {
	orderID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/scan/delivery", strings.NewReader(`{}`))
	req = withUser(req, uuid.New())
	req = withOrderParam(req, orderID)
	resp := httptest.NewRecorder()
	ScanDelivery(&testOrdersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestScanDeliveryPassesPayload(t *testing.T) {
	orderID := uuid.New()
	scannerID := uuid.New()
	var captured internalorders.ScanInput
	svc := &testOrdersService{
		scanFn: func(ctx context.Context, input internalorders.ScanInput) (*models.Order, error) {
			captured = input
			return &models.Order{ID: input.OrderID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/scan/delivery", strings.NewReader(`{"payload":"rentloop://handover?x=1"}`))
	req = withUser(req, scannerID)
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	ScanDelivery(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Payload != "rentloop://handover?x=1" {
		t.Fatalf("unexpected payload %q", captured.Payload)
	}
	if captured.ActorID != scannerID {
		t.Fatalf("unexpected actor %s", captured.ActorID)
	}
}

func TestListParsesFilters(t *testing.T) {
	userID := uuid.New()
	var gotParams pagination.Params
	var gotFilters internalorders.ListFilters
	svc := &testOrdersService{
		listFn: func(ctx context.Context, uid uuid.UUID, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
			gotParams = params
			gotFilters = filters
			return &internalorders.OrderList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&status=accepted&role=seller", nil)
	req = withUser(req, userID)
	resp := httptest.NewRecorder()
	List(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotParams.Limit != 5 {
		t.Fatalf("expected limit 5 got %d", gotParams.Limit)
	}
	if gotFilters.Status == nil || *gotFilters.Status != enums.OrderStatusAccepted {
		t.Fatalf("expected accepted filter got %v", gotFilters.Status)
	}
	if gotFilters.Role != internalorders.RoleSeller {
		t.Fatalf("expected seller role got %q", gotFilters.Role)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=lost", nil)
	req = withUser(req, uuid.New())
	resp := httptest.NewRecorder()
	List(&testOrdersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailRejectsBadOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	req = withUser(req, uuid.New())
	req = withOrderParam(req, "not-a-uuid")
	resp := httptest.NewRecorder()
	Detail(&testOrdersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreatePaymentSessionReturnsCreated(t *testing.T) {
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/payment-session", nil)
	req = withUser(req, uuid.New())
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	CreatePaymentSession(&testOrdersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}
