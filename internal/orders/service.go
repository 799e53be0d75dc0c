package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tomatolabs/bookstore-backend/internal/cart"
	"github.com/tomatolabs/bookstore-backend/internal/stock"
	"github.com/tomatolabs/bookstore-backend/pkg/enums"
	pkgerrors "github.com/tomatolabs/bookstore-backend/pkg/errors"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
	"github.com/tomatolabs/bookstore-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order lifecycle operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) error
	// Timeout expires a single pending order. Reports whether this call won
	// the transition, so callers replaying the sweep can count real work.
	Timeout(ctx context.Context, orderID uuid.UUID) (bool, error)
	// Settle finalizes payment for an order. A redelivered notification for
	// an order that already left pending fails with an order status error
	// and mutates nothing.
	Settle(ctx context.Context, input SettleInput) error
}

// SettleInput carries the reconciled fields from a payment notification.
type SettleInput struct {
	OrderID     uuid.UUID
	TradeNo     string
	Amount      decimal.Decimal
	PaymentTime *time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger stock.Ledger
	cart   cart.Repository
	logg   *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger stock.Ledger, cartRepo cart.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		ledger: ledger,
		cart:   cartRepo,
		logg:   logg,
	}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByUserAndID(ctx, userID, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	orders, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var next *string
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &cursor
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, NewOrderView(&orders[i]))
	}
	return &OrderList{Orders: views, NextCursor: next}, nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByUserAndID(ctx, userID, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeOrderCannotCancel, "only pending orders can be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}

		won, err := repo.TransitionFromPending(ctx, order.ID, enums.OrderStatusCancelled, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeOrderCannotCancel, "order already left pending state")
		}

		for _, line := range order.Lines {
			if err := s.ledger.Release(ctx, tx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) Timeout(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}

		won, err := repo.TransitionFromPending(ctx, order.ID, enums.OrderStatusTimeout, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire order")
		}
		if !won {
			return nil
		}
		expired = true

		for _, line := range order.Lines {
			if err := s.ledger.Release(ctx, tx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}
		return nil
	})
	return expired, err
}

func (s *service) Settle(ctx context.Context, input SettleInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeOrderStatus, "order is not awaiting payment").
				WithDetails(map[string]any{"status": order.Status})
		}

		if !input.Amount.Equal(order.TotalAmount) {
			return pkgerrors.New(pkgerrors.CodePaymentAmountMismatch, "paid amount does not match order total").
				WithDetails(map[string]any{
					"expected": order.TotalAmount.StringFixed(2),
					"received": input.Amount.StringFixed(2),
				})
		}

		paymentTime := input.PaymentTime
		if paymentTime == nil {
			now := time.Now().UTC()
			paymentTime = &now
		}

		won, err := repo.TransitionFromPending(ctx, order.ID, enums.OrderStatusPaid, map[string]any{
			"trade_no":     input.TradeNo,
			"payment_time": paymentTime,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeOrderStatus, "order left pending state during settlement")
		}

		cartLineIDs := make([]uuid.UUID, 0, len(order.Lines))
		for _, line := range order.Lines {
			if err := s.ledger.Commit(ctx, tx, line.ProductID, line.Qty); err != nil {
				return err
			}
			if line.CartLineID != nil {
				cartLineIDs = append(cartLineIDs, *line.CartLineID)
			}
		}

		if err := s.cart.WithTx(tx).DeleteByIDs(ctx, cartLineIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart lines")
		}
		return nil
	})
}
