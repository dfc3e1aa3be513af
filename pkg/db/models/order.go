package models

import (
	"time"

	"github.com/angelmondragon/paytm-adapter/pkg/enums"
)

// Order is created from a completed cart; the Paytm order id is the cart id.
type Order struct {
	ID            string              `gorm:"column:id;primaryKey"`
	CartID        string              `gorm:"column:cart_id;not null;uniqueIndex"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null;default:'not_paid'"`
	CurrencyCode  string              `gorm:"column:currency_code;not null"`
	Total         int64               `gorm:"column:total;not null;default:0"`
	CapturedAt    *time.Time          `gorm:"column:captured_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
