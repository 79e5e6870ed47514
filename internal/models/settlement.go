package models

import (
	"time"
)

// Settlement statuses. A settlement is created with funds already reserved,
// before the provider call. Debited and Refunded are terminal.
const (
	SettlementPending  = "pending"
	SettlementDebited  = "debited"
	SettlementRefunded = "refunded"
)

type Settlement struct {
	ID             int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference      string     `gorm:"column:reference;size:100;not null;uniqueIndex" json:"reference"`
	IdempotencyKey string     `gorm:"column:idempotency_key;size:64;not null;uniqueIndex" json:"idempotency_key"`
	Uid            string     `gorm:"column:uid;size:128;not null;index:idx_settlement_uid" json:"uid"`
	Provider       string     `gorm:"column:provider;size:50;not null" json:"provider"`
	ProductType    string     `gorm:"column:product_type;size:50;not null" json:"product_type"`
	ProductID      string     `gorm:"column:product_id;size:100;not null" json:"product_id"`
	ProductName    string     `gorm:"column:product_name;size:255" json:"product_name"`
	SellPrice      float64    `gorm:"column:sell_price;type:decimal(20,2);not null" json:"sell_price"`
	CostPrice      float64    `gorm:"column:cost_price;type:decimal(20,2);default:0.00" json:"cost_price"`
	PlayerRef      string     `gorm:"column:player_ref;type:text" json:"player_ref"`
	Status         string     `gorm:"column:status;size:20;default:pending;index:idx_settlement_status" json:"status"`
	ProviderTxnID  string     `gorm:"column:provider_txn_id;size:100" json:"provider_txn_id"`
	FailReason     string     `gorm:"column:fail_reason;size:255" json:"fail_reason"`
	SettledAt      *time.Time `gorm:"column:settled_at" json:"settled_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Settlement) TableName() string {
	return "settlements"
}

func (s *Settlement) Terminal() bool {
	return s.Status == SettlementDebited || s.Status == SettlementRefunded
}
