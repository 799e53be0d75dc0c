package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tomatolabs/bookstore-backend/pkg/db/models"
	"github.com/tomatolabs/bookstore-backend/pkg/enums"
)

// OrderLineView exposes the per-product snapshot returned to clients.
type OrderLineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

// OrderView exposes the order fields returned to clients.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	Status          enums.OrderStatus   `json:"status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	ShippingAddress string              `json:"shipping_address"`
	TradeNo         *string             `json:"trade_no,omitempty"`
	PaymentTime     *time.Time          `json:"payment_time,omitempty"`
	Lines           []OrderLineView     `json:"lines"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderList wraps one newest-first page of a user's orders. NextCursor is set
// only when another page exists.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

// NewOrderView maps the persistence model into the client view.
func NewOrderView(order *models.Order) OrderView {
	lines := make([]OrderLineView, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLineView{
			ProductID: line.ProductID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Qty:       line.Qty,
		})
	}
	return OrderView{
		ID:              order.ID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		PaymentMethod:   order.PaymentMethod,
		ShippingAddress: order.ShippingAddress,
		TradeNo:         order.TradeNo,
		PaymentTime:     order.PaymentTime,
		Lines:           lines,
		CreatedAt:       order.CreatedAt,
	}
}
