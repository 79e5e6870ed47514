package models

import (
	"time"
)

// ProviderLog keeps the raw request/response of every provider call for
// support and dispute handling.
type ProviderLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider  string    `gorm:"column:provider;size:50;not null" json:"provider"`
	Action    string    `gorm:"column:action;size:50" json:"action"`
	Reference string    `gorm:"column:reference;size:100;index" json:"reference"`
	Request   string    `gorm:"column:request;type:longtext" json:"request"`
	Response  string    `gorm:"column:response;type:longtext" json:"response"`
	Status    int       `gorm:"column:status;default:0" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ProviderLog) TableName() string {
	return "provider_logs"
}
