package models

type Region struct {
	ID           string `gorm:"column:id;primaryKey"`
	Name         string `gorm:"column:name;not null"`
	CurrencyCode string `gorm:"column:currency_code;not null"`
}
