package models

import (
	"time"

	"github.com/angelmondragon/paytm-adapter/pkg/enums"
	"github.com/angelmondragon/paytm-adapter/pkg/types"
)

// PaymentSession is one attempt to pay for a cart with a provider.
type PaymentSession struct {
	ID         string                     `gorm:"column:id;primaryKey"`
	CartID     string                     `gorm:"column:cart_id;not null"`
	ProviderID string                     `gorm:"column:provider_id;not null"`
	Status     enums.PaymentSessionStatus `gorm:"column:status;not null;default:'pending'"`
	IsSelected bool                       `gorm:"column:is_selected;not null;default:false"`
	Data       types.SessionData          `gorm:"column:data;type:jsonb;serializer:json"`
	CreatedAt  time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
