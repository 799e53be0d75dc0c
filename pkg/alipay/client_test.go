package alipay

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tomatolabs/bookstore-backend/pkg/config"
)

func testConfig() config.AlipayConfig {
	return config.AlipayConfig{
		AppID:           "2021000000000000",
		Secret:          "sandbox-secret",
		GatewayURL:      "https://openapi.alipaydev.com/gateway.do",
		NotifyURL:       "https://bookstore.example.com/orders/notify",
		ReturnURL:       "https://bookstore.example.com/orders/return",
		FrontendBaseURL: "https://bookstore.example.com",
	}
}

func TestBuildPagePayFormIncludesSignedFields(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	form, err := client.BuildPagePayForm(PagePayRequest{
		OutTradeNo:  "order-123",
		Subject:     "bookstore order",
		TotalAmount: decimal.RequireFromString("59.90"),
	})
	if err != nil {
		t.Fatalf("build form: %v", err)
	}

	for _, want := range []string{
		`name="out_trade_no" value="order-123"`,
		`name="total_amount" value="59.90"`,
		`name="sign"`,
		client.cfg.GatewayURL,
	} {
		if !strings.Contains(form, want) {
			t.Errorf("form missing %q", want)
		}
	}
}

func TestBuildPagePayFormRejectsNonPositiveAmount(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.BuildPagePayForm(PagePayRequest{
		OutTradeNo:  "order-123",
		TotalAmount: decimal.Zero,
	})
	if err == nil {
		t.Fatal("expected amount error")
	}
}

func TestParseNotificationRoundTrip(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	params := map[string]string{
		"out_trade_no": "order-123",
		"trade_no":     "2026011022001400000000000001",
		"trade_status": TradeStatusSuccess,
		"total_amount": "59.90",
		"gmt_payment":  "2026-01-10 10:30:00",
	}
	params["sign"] = client.sign(params)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	notif, err := client.ParseNotification(form)
	if err != nil {
		t.Fatalf("parse notification: %v", err)
	}
	if notif.OutTradeNo != "order-123" {
		t.Fatalf("unexpected out_trade_no %s", notif.OutTradeNo)
	}
	if notif.TradeStatus != TradeStatusSuccess {
		t.Fatalf("unexpected trade status %s", notif.TradeStatus)
	}
	if !notif.TotalAmount.Equal(decimal.RequireFromString("59.90")) {
		t.Fatalf("unexpected amount %s", notif.TotalAmount)
	}
	if notif.PaymentTime == nil {
		t.Fatal("expected payment time")
	}
}

func TestParseNotificationRejectsTamperedAmount(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	params := map[string]string{
		"out_trade_no": "order-123",
		"trade_no":     "trade-1",
		"trade_status": TradeStatusSuccess,
		"total_amount": "59.90",
	}
	params["sign"] = client.sign(params)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("total_amount", "0.01")

	if _, err := client.ParseNotification(form); err == nil {
		t.Fatal("expected signature mismatch")
	}
}

func TestSuccessRedirectURLEscapesOrderID(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	got := client.SuccessRedirectURL("order 1")
	want := "https://bookstore.example.com/orders/success?orderId=order+1"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
