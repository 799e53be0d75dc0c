package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomatolabs/bookstore-backend/internal/checkout"
	internalorders "github.com/tomatolabs/bookstore-backend/internal/orders"
	pkgAuth "github.com/tomatolabs/bookstore-backend/pkg/auth"
	"github.com/tomatolabs/bookstore-backend/pkg/config"
	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
	"github.com/tomatolabs/bookstore-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Create(ctx context.Context, input checkout.CreateInput) (*internalorders.OrderView, error) {
	return &internalorders.OrderView{ID: uuid.New()}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*internalorders.OrderView, error) {
	return &internalorders.OrderView{ID: orderID}, nil
}

func (stubOrdersService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, userID, orderID uuid.UUID) error {
	return nil
}

func (stubOrdersService) Timeout(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return false, nil
}

func (stubOrdersService) Settle(ctx context.Context, input internalorders.SettleInput) error {
	return nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) Pay(ctx context.Context, userID, orderID uuid.UUID) (string, error) {
	return "<form></form>", nil
}

func (stubPaymentsService) HandleNotification(ctx context.Context, form url.Values) error {
	return nil
}

func (stubPaymentsService) ReturnRedirect(orderID string) string {
	return "https://shop.example.com/orders/success?orderId=" + orderID
}

type stubStockAdmin struct{}

func (stubStockAdmin) Adjust(ctx context.Context, productID uuid.UUID, available, reserved int) (*models.StockRecord, error) {
	return &models.StockRecord{ProductID: productID, Available: available, Reserved: reserved}, nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "test-secret", Issuer: "bookstore-test", ExpirationMinutes: 5}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})

	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubCheckoutService{},
		stubOrdersService{},
		stubPaymentsService{},
		stubStockAdmin{},
	)
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if env := resp.Header().Get("X-Bookstore-Env"); env != "test" {
			t.Fatalf("%s: missing env header, got %q", path, env)
		}
	}
}

func TestOrderRoutesRequireAuth(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOrderRoutesAcceptBearerToken(t *testing.T) {
	router := testRouter(t)
	cfg := config.JWTConfig{Secret: "test-secret", Issuer: "bookstore-test", ExpirationMinutes: 5}

	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	router := testRouter(t)
	cfg := config.JWTConfig{Secret: "test-secret", Issuer: "bookstore-test", ExpirationMinutes: 5}

	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/products/"+uuid.NewString()+"/stockpile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAlipayNotifyIsPublic(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/alipay/notify", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Body.String() != "success" {
		t.Fatalf("expected success ack, got %q", resp.Body.String())
	}
}
