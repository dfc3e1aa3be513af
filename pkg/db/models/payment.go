package models

import (
	"time"

	"github.com/angelmondragon/paytm-adapter/pkg/types"
)

// Payment records the authorized amount for a cart once it is turned into an order.
type Payment struct {
	ID             string            `gorm:"column:id;primaryKey"`
	CartID         string            `gorm:"column:cart_id;not null;index"`
	OrderID        *string           `gorm:"column:order_id"`
	ProviderID     string            `gorm:"column:provider_id;not null"`
	Amount         int64             `gorm:"column:amount;not null"`
	AmountRefunded int64             `gorm:"column:amount_refunded;not null;default:0"`
	CurrencyCode   string            `gorm:"column:currency_code;not null"`
	Data           types.SessionData `gorm:"column:data;type:jsonb;serializer:json"`
	CapturedAt     *time.Time        `gorm:"column:captured_at"`
	CanceledAt     *time.Time        `gorm:"column:canceled_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
