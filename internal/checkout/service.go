package checkout

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tomatolabs/bookstore-backend/internal/cart"
	"github.com/tomatolabs/bookstore-backend/internal/catalog"
	"github.com/tomatolabs/bookstore-backend/internal/orders"
	"github.com/tomatolabs/bookstore-backend/internal/stock"
	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	"github.com/tomatolabs/bookstore-backend/pkg/enums"
	pkgerrors "github.com/tomatolabs/bookstore-backend/pkg/errors"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a cart selection into a pending order with reserved stock.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*orders.OrderView, error)
}

// CreateInput captures the checkout request.
type CreateInput struct {
	UserID          uuid.UUID
	CartLineIDs     []uuid.UUID
	PaymentMethod   enums.PaymentMethod
	ShippingAddress string
}

type service struct {
	orders  orders.Repository
	cart    cart.Repository
	catalog catalog.Repository
	ledger  stock.Ledger
	tx      txRunner
	logg    *logger.Logger
}

// NewService builds a checkout service with the required dependencies.
func NewService(ordersRepo orders.Repository, cartRepo cart.Repository, catalogRepo catalog.Repository, ledger stock.Ledger, tx txRunner, logg *logger.Logger) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:  ordersRepo,
		cart:    cartRepo,
		catalog: catalogRepo,
		ledger:  ledger,
		tx:      tx,
		logg:    logg,
	}, nil
}

// Create runs the whole checkout in one transaction. A failed reservation on
// any line rolls back the order and every prior hold.
func (s *service) Create(ctx context.Context, input CreateInput) (*orders.OrderView, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.CartLineIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptySelection, "no cart lines selected")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.ShippingAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	var view orders.OrderView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cart.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		lines, err := cartRepo.FindByUserAndIDs(ctx, input.UserID, input.CartLineIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
		}
		if len(lines) != len(dedupe(input.CartLineIDs)) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more cart lines not found")
		}

		productIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			productIDs = append(productIDs, line.ProductID)
		}
		products, err := catalogRepo.FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		productByID := map[uuid.UUID]models.Product{}
		for _, product := range products {
			productByID[product.ID] = product
		}

		total := decimal.Zero
		orderLines := make([]models.OrderLine, 0, len(lines))
		for _, line := range lines {
			product, ok := productByID[line.ProductID]
			if !ok || !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product unavailable").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
			if line.Qty <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart line qty must be positive")
			}

			cartLineID := line.ID
			orderLines = append(orderLines, models.OrderLine{
				ID:         uuid.New(),
				ProductID:  product.ID,
				CartLineID: &cartLineID,
				Title:      product.Title,
				UnitPrice:  product.Price,
				Qty:        line.Qty,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Qty))))
		}

		// Preflight so the caller learns which product is short before any
		// hold is taken.
		sort.Slice(orderLines, func(i, j int) bool {
			return orderLines[i].ProductID.String() < orderLines[j].ProductID.String()
		})
		for _, line := range orderLines {
			record, err := s.ledger.Get(ctx, tx, line.ProductID)
			if err != nil {
				typed := pkgerrors.As(err)
				if typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
						WithDetails(stock.InsufficientStockDetails{
							ProductID: line.ProductID.String(),
							Available: 0,
							Requested: line.Qty,
						})
				}
				return err
			}
			if record.Available < line.Qty {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
					WithDetails(stock.InsufficientStockDetails{
						ProductID: line.ProductID.String(),
						Available: record.Available,
						Requested: line.Qty,
					})
			}
		}

		order := &models.Order{
			ID:              uuid.New(),
			UserID:          input.UserID,
			Status:          enums.OrderStatusPending,
			TotalAmount:     total,
			PaymentMethod:   input.PaymentMethod,
			ShippingAddress: input.ShippingAddress,
		}
		for i := range orderLines {
			orderLines[i].OrderID = order.ID
		}
		order.Lines = orderLines

		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		// Reservations run in product-id order so concurrent checkouts
		// touching the same products lock rows in the same sequence.
		for _, line := range orderLines {
			if err := s.ledger.Reserve(ctx, tx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}

		view = orders.NewOrderView(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, view.ID.String())
	s.logg.Info(ctx, "order created with stock reserved")
	return &view, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
