package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine captures the snapshot of each product within an order. CartLineID
// links back to the cart entry the line was created from so a successful
// payment can clear exactly those entries.
type OrderLine struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	CartLineID *uuid.UUID      `gorm:"column:cart_line_id;type:uuid"`
	Title      string          `gorm:"column:title;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Qty        int             `gorm:"column:qty;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
