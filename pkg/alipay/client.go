package alipay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomatolabs/bookstore-backend/pkg/config"
)

const (
	// TradeStatusSuccess is the only status that settles an order.
	TradeStatusSuccess = "TRADE_SUCCESS"

	paymentTimeLayout = "2006-01-02 15:04:05"
	signField         = "sign"
)

// Client signs outbound page-pay requests and verifies inbound notifications.
type Client struct {
	cfg config.AlipayConfig
}

// Notification is the parsed asynchronous payment callback.
type Notification struct {
	OutTradeNo  string
	TradeNo     string
	TradeStatus string
	TotalAmount decimal.Decimal
	PaymentTime *time.Time
}

// PagePayRequest describes the order being sent to the gateway.
type PagePayRequest struct {
	OutTradeNo  string
	Subject     string
	TotalAmount decimal.Decimal
}

func NewClient(cfg config.AlipayConfig) (*Client, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("alipay app id is required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("alipay secret is required")
	}
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("alipay gateway url is required")
	}
	return &Client{cfg: cfg}, nil
}

// BuildPagePayForm renders a self-submitting HTML form that redirects the
// buyer to the gateway's checkout page.
func (c *Client) BuildPagePayForm(req PagePayRequest) (string, error) {
	if req.OutTradeNo == "" {
		return "", fmt.Errorf("out trade no is required")
	}
	if !req.TotalAmount.IsPositive() {
		return "", fmt.Errorf("total amount must be positive")
	}

	params := map[string]string{
		"app_id":       c.cfg.AppID,
		"method":       "alipay.trade.page.pay",
		"charset":      "utf-8",
		"sign_type":    "HMAC-SHA256",
		"timestamp":    time.Now().Format(paymentTimeLayout),
		"notify_url":   c.cfg.NotifyURL,
		"return_url":   c.cfg.ReturnURL,
		"out_trade_no": req.OutTradeNo,
		"subject":      req.Subject,
		"total_amount": req.TotalAmount.StringFixed(2),
		"product_code": "FAST_INSTANT_TRADE_PAY",
	}
	params[signField] = c.sign(params)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<form id="alipay_submit" action="%s" method="POST">`, c.cfg.GatewayURL))
	keys := sortedKeys(params)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(`<input type="hidden" name="%s" value="%s"/>`, k, htmlEscape(params[k])))
	}
	sb.WriteString(`</form><script>document.getElementById("alipay_submit").submit();</script>`)
	return sb.String(), nil
}

// ParseNotification validates the signature of a form-encoded callback and
// returns the typed notification.
func (c *Client) ParseNotification(form url.Values) (*Notification, error) {
	params := map[string]string{}
	for key := range form {
		params[key] = form.Get(key)
	}

	if err := c.verify(params); err != nil {
		return nil, err
	}

	outTradeNo := params["out_trade_no"]
	if outTradeNo == "" {
		return nil, fmt.Errorf("notification missing out_trade_no")
	}

	amountRaw := params["total_amount"]
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid total_amount %q: %w", amountRaw, err)
	}

	notif := &Notification{
		OutTradeNo:  outTradeNo,
		TradeNo:     params["trade_no"],
		TradeStatus: params["trade_status"],
		TotalAmount: amount,
	}

	if raw := params["gmt_payment"]; raw != "" {
		parsed, err := time.ParseInLocation(paymentTimeLayout, raw, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid gmt_payment %q: %w", raw, err)
		}
		notif.PaymentTime = &parsed
	}

	return notif, nil
}

// SuccessRedirectURL is where the synchronous return callback sends the buyer.
func (c *Client) SuccessRedirectURL(orderID string) string {
	base := strings.TrimRight(c.cfg.FrontendBaseURL, "/")
	return fmt.Sprintf("%s/orders/success?orderId=%s", base, url.QueryEscape(orderID))
}

func (c *Client) verify(params map[string]string) error {
	provided := params[signField]
	if provided == "" {
		return fmt.Errorf("notification missing signature")
	}
	expected := c.sign(params)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return fmt.Errorf("notification signature mismatch")
	}
	return nil
}

// sign computes HMAC-SHA256 over the sorted key=value pairs, excluding the
// sign field itself and empty values.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == signField || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func sortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func htmlEscape(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(value)
}
