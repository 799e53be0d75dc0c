package payments

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tomatolabs/bookstore-backend/internal/orders"
	"github.com/tomatolabs/bookstore-backend/pkg/alipay"
	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	"github.com/tomatolabs/bookstore-backend/pkg/enums"
	pkgerrors "github.com/tomatolabs/bookstore-backend/pkg/errors"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

// gateway is the payment provider surface the service needs.
type gateway interface {
	BuildPagePayForm(req alipay.PagePayRequest) (string, error)
	ParseNotification(form url.Values) (*alipay.Notification, error)
	SuccessRedirectURL(orderID string) string
}

type orderLoader interface {
	FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
}

type settler interface {
	Settle(ctx context.Context, input orders.SettleInput) error
}

// Service drives the provider round trip: outbound pay pages, the
// asynchronous notify callback and the synchronous return redirect.
type Service interface {
	Pay(ctx context.Context, userID, orderID uuid.UUID) (string, error)
	HandleNotification(ctx context.Context, form url.Values) error
	ReturnRedirect(orderID string) string
}

type service struct {
	gateway gateway
	repo    orderLoader
	orders  settler
	logg    *logger.Logger
}

// NewService builds a payments service with the required dependencies.
func NewService(gw gateway, repo orderLoader, orderSvc settler, logg *logger.Logger) (Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{gateway: gw, repo: repo, orders: orderSvc, logg: logg}, nil
}

// Pay renders the provider checkout form for a pending order.
func (s *service) Pay(ctx context.Context, userID, orderID uuid.UUID) (string, error) {
	if orderID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByUserAndID(ctx, userID, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPending {
		return "", pkgerrors.New(pkgerrors.CodeOrderStatus, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}
	// Only the alipay gateway is integrated; other stored methods cannot pay.
	if order.PaymentMethod != enums.PaymentMethodAlipay {
		return "", pkgerrors.New(pkgerrors.CodeOrderStatus, "payment method not supported for online payment").
			WithDetails(map[string]any{"payment_method": order.PaymentMethod})
	}

	form, err := s.gateway.BuildPagePayForm(alipay.PagePayRequest{
		OutTradeNo:  order.ID.String(),
		Subject:     paySubject(order),
		TotalAmount: order.TotalAmount,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build pay form")
	}
	return form, nil
}

// HandleNotification verifies and applies an asynchronous payment callback.
// Non-success statuses are acknowledged without touching the order.
func (s *service) HandleNotification(ctx context.Context, form url.Values) error {
	notif, err := s.gateway.ParseNotification(form)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment notification")
	}

	ctx = s.logg.WithOrderID(ctx, notif.OutTradeNo)
	if notif.TradeStatus != alipay.TradeStatusSuccess {
		s.logg.Info(ctx, "ignoring non-success payment notification")
		return nil
	}

	orderID, err := uuid.Parse(notif.OutTradeNo)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid out_trade_no")
	}

	return s.orders.Settle(ctx, orders.SettleInput{
		OrderID:     orderID,
		TradeNo:     notif.TradeNo,
		Amount:      notif.TotalAmount,
		PaymentTime: notif.PaymentTime,
	})
}

// ReturnRedirect resolves where the synchronous callback sends the buyer.
func (s *service) ReturnRedirect(orderID string) string {
	return s.gateway.SuccessRedirectURL(orderID)
}

func paySubject(order *models.Order) string {
	if len(order.Lines) == 1 {
		return order.Lines[0].Title
	}
	return fmt.Sprintf("bookstore order (%d items)", len(order.Lines))
}
