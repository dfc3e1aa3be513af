package models

import "time"

// Customer is the shopper a cart belongs to.
type Customer struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Email      string    `gorm:"column:email;not null"`
	FirstName  string    `gorm:"column:first_name"`
	LastName   string    `gorm:"column:last_name"`
	Phone      string    `gorm:"column:phone"`
	HasAccount bool      `gorm:"column:has_account;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
