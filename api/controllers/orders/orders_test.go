package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tomatolabs/bookstore-backend/api/middleware"
	"github.com/tomatolabs/bookstore-backend/internal/checkout"
	internalorders "github.com/tomatolabs/bookstore-backend/internal/orders"
	"github.com/tomatolabs/bookstore-backend/pkg/enums"
	"github.com/tomatolabs/bookstore-backend/pkg/pagination"
)

type stubCheckoutService struct {
	create func(ctx context.Context, input checkout.CreateInput) (*internalorders.OrderView, error)
}

func (s *stubCheckoutService) Create(ctx context.Context, input checkout.CreateInput) (*internalorders.OrderView, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return nil, nil
}

type stubOrdersService struct {
	get    func(ctx context.Context, userID, orderID uuid.UUID) (*internalorders.OrderView, error)
	list   func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error)
	cancel func(ctx context.Context, userID, orderID uuid.UUID) error
}

func (s *stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*internalorders.OrderView, error) {
	if s.get != nil {
		return s.get(ctx, userID, orderID)
	}
	return nil, nil
}

func (s *stubOrdersService) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	if s.list != nil {
		return s.list(ctx, userID, params)
	}
	return &internalorders.OrderList{}, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, userID, orderID uuid.UUID) error {
	if s.cancel != nil {
		return s.cancel(ctx, userID, orderID)
	}
	return nil
}

func (s *stubOrdersService) Timeout(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubOrdersService) Settle(ctx context.Context, input internalorders.SettleInput) error {
	return nil
}

type stubPaymentsService struct {
	pay func(ctx context.Context, userID, orderID uuid.UUID) (string, error)
}

func (s *stubPaymentsService) Pay(ctx context.Context, userID, orderID uuid.UUID) (string, error) {
	if s.pay != nil {
		return s.pay(ctx, userID, orderID)
	}
	return "", nil
}

func (s *stubPaymentsService) HandleNotification(ctx context.Context, form url.Values) error {
	return nil
}

func (s *stubPaymentsService) ReturnRedirect(orderID string) string {
	return ""
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateReturnsCreatedOrder(t *testing.T) {
	userID := uuid.New()
	lineID := uuid.New()
	svc := &stubCheckoutService{
		create: func(ctx context.Context, input checkout.CreateInput) (*internalorders.OrderView, error) {
			if input.UserID != userID {
				t.Fatalf("unexpected user id %s", input.UserID)
			}
			if len(input.CartLineIDs) != 1 || input.CartLineIDs[0] != lineID {
				t.Fatalf("cart line ids not passed through")
			}
			if input.PaymentMethod != enums.PaymentMethodAlipay {
				t.Fatalf("unexpected payment method %s", input.PaymentMethod)
			}
			return &internalorders.OrderView{
				ID:          uuid.New(),
				Status:      enums.OrderStatusPending,
				TotalAmount: decimal.RequireFromString("29.90"),
			}, nil
		},
	}

	body := `{"cart_line_ids":["` + lineID.String() + `"],"payment_method":"alipay","shipping_address":"1 Library Way"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data internalorders.OrderView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestCreateRequiresAuthenticatedUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(&stubCheckoutService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateRejectsUnknownPaymentMethod(t *testing.T) {
	body := `{"cart_line_ids":[],"payment_method":"cheque","shipping_address":"1 Library Way"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	Create(&stubCheckoutService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailParsesOrderID(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(ctx context.Context, gotUser, gotOrder uuid.UUID) (*internalorders.OrderView, error) {
			if gotUser != userID || gotOrder != orderID {
				t.Fatalf("unexpected ids %s %s", gotUser, gotOrder)
			}
			return &internalorders.OrderView{ID: orderID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = withURLParam(req, "orderId", orderID.String())

	resp := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestDetailRejectsMalformedOrderID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = withURLParam(req, "orderId", "not-a-uuid")

	resp := httptest.NewRecorder()
	Detail(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelDelegatesToService(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	called := false
	svc := &stubOrdersService{
		cancel: func(ctx context.Context, gotUser, gotOrder uuid.UUID) error {
			called = true
			if gotUser != userID || gotOrder != orderID {
				t.Fatalf("unexpected ids %s %s", gotUser, gotOrder)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = withURLParam(req, "orderId", orderID.String())

	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("cancel not delegated")
	}
}

func TestPayWritesProviderForm(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubPaymentsService{
		pay: func(ctx context.Context, gotUser, gotOrder uuid.UUID) (string, error) {
			return "<form id='pay'></form>", nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = withURLParam(req, "orderId", orderID.String())

	resp := httptest.NewRecorder()
	Pay(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html content type, got %s", ct)
	}
	if !strings.Contains(resp.Body.String(), "<form") {
		t.Fatalf("expected form body, got %s", resp.Body.String())
	}
}

func TestListReturnsEnvelope(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{
		list: func(ctx context.Context, gotUser uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
			if gotUser != userID {
				t.Fatalf("unexpected user id %s", gotUser)
			}
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return &internalorders.OrderList{Orders: []internalorders.OrderView{{ID: uuid.New()}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))

	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data internalorders.OrderList `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(envelope.Data.Orders))
	}
}
