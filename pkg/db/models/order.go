package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tomatolabs/bookstore-backend/pkg/enums"
)

// Order is the purchase record driving the payment lifecycle. Status moves
// from pending to exactly one of paid, cancelled or timeout.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	TradeNo         *string             `gorm:"column:trade_no"`
	PaymentTime     *time.Time          `gorm:"column:payment_time"`
	Lines           []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
