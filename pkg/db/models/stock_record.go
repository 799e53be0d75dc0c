package models

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord tracks sellable and reserved counts per product.
// Available never dips below zero; reservations move quantity from
// Available to Reserved until the order settles.
type StockRecord struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Available int       `gorm:"column:available;not null;default:0"`
	Reserved  int       `gorm:"column:reserved;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
