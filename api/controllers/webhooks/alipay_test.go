package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/tomatolabs/bookstore-backend/pkg/errors"
)

type stubPaymentsService struct {
	handle   func(ctx context.Context, form url.Values) error
	redirect func(orderID string) string
}

func (s *stubPaymentsService) Pay(ctx context.Context, userID, orderID uuid.UUID) (string, error) {
	return "", nil
}

func (s *stubPaymentsService) HandleNotification(ctx context.Context, form url.Values) error {
	if s.handle != nil {
		return s.handle(ctx, form)
	}
	return nil
}

func (s *stubPaymentsService) ReturnRedirect(orderID string) string {
	if s.redirect != nil {
		return s.redirect(orderID)
	}
	return ""
}

func postForm(handler http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/alipay/notify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestNotifyAcksSuccess(t *testing.T) {
	var seen url.Values
	svc := &stubPaymentsService{
		handle: func(ctx context.Context, form url.Values) error {
			seen = form
			return nil
		},
	}

	form := url.Values{}
	form.Set("out_trade_no", uuid.NewString())
	form.Set("trade_status", "TRADE_SUCCESS")

	resp := postForm(AlipayNotify(svc, nil), form)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Body.String() != "success" {
		t.Fatalf("expected success ack, got %q", resp.Body.String())
	}
	if seen.Get("trade_status") != "TRADE_SUCCESS" {
		t.Fatalf("form not passed through")
	}
}

func TestNotifyAnswersFailureOnRejection(t *testing.T) {
	svc := &stubPaymentsService{
		handle: func(ctx context.Context, form url.Values) error {
			return pkgerrors.New(pkgerrors.CodeValidation, "signature mismatch")
		},
	}

	resp := postForm(AlipayNotify(svc, nil), url.Values{})
	if resp.Code != http.StatusOK {
		t.Fatalf("provider retries on non-200; got %d", resp.Code)
	}
	if resp.Body.String() != "failure" {
		t.Fatalf("expected failure ack, got %q", resp.Body.String())
	}
}

func TestReturnRedirectsBuyer(t *testing.T) {
	orderID := uuid.NewString()
	svc := &stubPaymentsService{
		redirect: func(gotOrderID string) string {
			if gotOrderID != orderID {
				t.Fatalf("unexpected order id %s", gotOrderID)
			}
			return "https://shop.example.com/orders/success?orderId=" + gotOrderID
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/alipay/return?out_trade_no="+orderID, nil)
	resp := httptest.NewRecorder()
	AlipayReturn(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", resp.Code)
	}
	location := resp.Header().Get("Location")
	if !strings.Contains(location, orderID) {
		t.Fatalf("redirect missing order id: %s", location)
	}
}
