package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentloop/rentloop-backend/internal/negotiations"
	"github.com/rentloop/rentloop-backend/internal/notifications"
	internalorders "github.com/rentloop/rentloop-backend/internal/orders"
	pkgauth "github.com/rentloop/rentloop-backend/pkg/auth"
	"github.com/rentloop/rentloop-backend/pkg/config"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrdersService struct {
	getFn  func(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	listFn func(ctx context.Context, userID uuid.UUID, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
}

func (s stubOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

func (s stubOrdersService) Accept(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) Decline(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) Cancel(ctx context.Context, input internalorders.DecisionInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) CreatePaymentSession(ctx context.Context, input internalorders.PaymentInput) (*models.PaymentSession, error) {
	return &models.PaymentSession{OrderID: input.OrderID}, nil
}

func (s stubOrdersService) PayStripe(ctx context.Context, input internalorders.PaymentInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) PayCOD(ctx context.Context, input internalorders.PaymentInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) VerifyCOD(ctx context.Context, input internalorders.PaymentInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) ScanDelivery(ctx context.Context, input internalorders.ScanInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) ScanReturn(ctx context.Context, input internalorders.ScanInput) (*models.Order, error) {
	return &models.Order{ID: input.OrderID}, nil
}

func (s stubOrdersService) Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, actorID)
	}
	return &models.Order{ID: orderID}, nil
}

func (s stubOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, params, filters)
	}
	return &internalorders.OrderList{}, nil
}

type stubNegotiationsService struct{}

func (stubNegotiationsService) RecordOffer(ctx context.Context, input negotiations.OfferInput) (*models.Negotiation, error) {
	return &models.Negotiation{OrderID: input.OrderID}, nil
}

func (stubNegotiationsService) RecordAccept(ctx context.Context, input negotiations.AcceptInput) (*models.Negotiation, error) {
	return &models.Negotiation{OrderID: input.OrderID}, nil
}

func (stubNegotiationsService) RecordDecline(ctx context.Context, input negotiations.DeclineInput) (*models.Negotiation, error) {
	return &models.Negotiation{OrderID: input.OrderID}, nil
}

func (stubNegotiationsService) CurrentPrice(ctx context.Context, orderID uuid.UUID) (*decimal.Decimal, error) {
	return nil, nil
}

func (stubNegotiationsService) History(ctx context.Context, orderID, actorID uuid.UUID) ([]models.Negotiation, error) {
	return nil, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubOrdersService{},
		stubNegotiationsService{},
		stubNotificationsService{},
		nil,
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), uuid.New(), "")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for health got %d", resp.Code)
	}
}

func TestOrdersGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersListSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order list got %d", resp.Code)
	}
}

func TestOrderDetailRouteBindsOrderID(t *testing.T) {
	cfg := testConfig()
	orderID := uuid.New()
	var seen uuid.UUID
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	router := NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubOrdersService{
			getFn: func(ctx context.Context, oid, actorID uuid.UUID) (*models.Order, error) {
				seen = oid
				return &models.Order{ID: oid}, nil
			},
		},
		stubNegotiationsService{},
		stubNotificationsService{},
		nil,
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order detail got %d", resp.Code)
	}
	if seen != orderID {
		t.Fatalf("expected order %s bound from path, got %s", orderID, seen)
	}
}

func TestNegotiationRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString()+"/negotiations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestNotificationsRoutesWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for notifications got %d", resp.Code)
	}
}
