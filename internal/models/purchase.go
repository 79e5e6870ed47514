package models

import (
	"time"
)

// Purchase is the descriptive history record shown to users and admins.
// It is written best-effort after settlement; the settlements table is the
// reconciliation source of truth.
type Purchase struct {
	ID            int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Uid           string    `gorm:"column:uid;size:128;not null;index:idx_purchase_uid" json:"uid"`
	Reference     string    `gorm:"column:reference;size:100;not null;index" json:"reference"`
	Provider      string    `gorm:"column:provider;size:50" json:"provider"`
	ProductType   string    `gorm:"column:product_type;size:50" json:"product_type"`
	ProductID     string    `gorm:"column:product_id;size:100" json:"product_id"`
	ProductName   string    `gorm:"column:product_name;size:255" json:"product_name"`
	SellPrice     float64   `gorm:"column:sell_price;type:decimal(20,2);not null" json:"sell_price"`
	CostPrice     float64   `gorm:"column:cost_price;type:decimal(20,2);default:0.00" json:"cost_price"`
	ProviderTxnID string    `gorm:"column:provider_txn_id;size:100" json:"provider_txn_id"`
	Status        string    `gorm:"column:status;size:50" json:"status"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Purchase) TableName() string {
	return "purchases"
}
