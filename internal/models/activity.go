package models

import (
	"time"
)

type ActivityLog struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Uid       string    `gorm:"column:uid;size:128;index:idx_activity_uid" json:"uid"`
	Action    string    `gorm:"column:action;size:100;not null" json:"action"`
	Detail    string    `gorm:"column:detail;type:text" json:"detail"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

type Notification struct {
	ID        int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Uid       string    `gorm:"column:uid;size:128;index:idx_notification_uid" json:"uid"`
	Title     string    `gorm:"column:title;size:255;not null" json:"title"`
	Body      string    `gorm:"column:body;type:text" json:"body"`
	Read      bool      `gorm:"column:is_read;default:false" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
