package models

import (
	"fmt"
	"time"
)

type PriceOverride struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"column:code;size:191;not null;uniqueIndex" json:"code"`
	ProductType string    `gorm:"column:product_type;size:50;not null" json:"product_type"`
	ProductID   string    `gorm:"column:product_id;size:100;not null" json:"product_id"`
	Name        string    `gorm:"column:name;size:255" json:"name"`
	Category    string    `gorm:"column:category;size:255" json:"category"`
	CostPrice   float64   `gorm:"column:cost_price;type:decimal(20,2);default:0.00" json:"cost_price"`
	SellPrice   float64   `gorm:"column:sell_price;type:decimal(20,2);default:0.00" json:"sell_price"`
	UpdatedBy   string    `gorm:"column:updated_by;size:128" json:"updated_by"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PriceOverride) TableName() string {
	return "price_overrides"
}

// OverrideCode builds the composite lookup key for a price override.
func OverrideCode(productType, productID string) string {
	return fmt.Sprintf("%s_%s", productType, productID)
}
