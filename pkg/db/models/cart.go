package models

import (
	"time"

	"github.com/angelmondragon/paytm-adapter/pkg/types"
)

// Cart is the read projection the payment flow works from. Total is in minor units.
type Cart struct {
	ID              string           `gorm:"column:id;primaryKey"`
	Email           string           `gorm:"column:email"`
	CustomerID      *string          `gorm:"column:customer_id"`
	Customer        *Customer        `gorm:"foreignKey:CustomerID"`
	RegionID        string           `gorm:"column:region_id;not null"`
	Region          Region           `gorm:"foreignKey:RegionID"`
	Total           int64            `gorm:"column:total;not null;default:0"`
	Metadata        types.Metadata   `gorm:"column:metadata;type:jsonb;serializer:json"`
	PaymentSessions []PaymentSession `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CurrencyCode returns the region currency the cart is priced in.
func (c Cart) CurrencyCode() string {
	return c.Region.CurrencyCode
}

// SessionFor returns the payment session opened with the given provider, if any.
func (c Cart) SessionFor(providerID string) *PaymentSession {
	for i := range c.PaymentSessions {
		if c.PaymentSessions[i].ProviderID == providerID {
			return &c.PaymentSessions[i]
		}
	}
	return nil
}
