package models

import (
	"time"
)

type User struct {
	ID             int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Uid            string     `gorm:"column:uid;size:128;not null;uniqueIndex" json:"uid"`
	Email          string     `gorm:"column:email;size:255;not null" json:"email"`
	ShopName       string     `gorm:"column:shop_name;size:255" json:"shop_name"`
	Role           string     `gorm:"column:role;size:20;default:user" json:"role"`
	Balance        float64    `gorm:"column:balance;type:decimal(20,2);default:0.00" json:"balance"`
	Suspended      bool       `gorm:"column:suspended;default:false" json:"suspended"`
	SuspendedUntil *time.Time `gorm:"column:suspended_until" json:"suspended_until"`
	SuspendReason  string     `gorm:"column:suspend_reason;size:255" json:"suspend_reason"`
	EmailVerified  bool       `gorm:"column:email_verified;default:false" json:"email_verified"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsSuspended reports whether the account is currently blocked from
// purchasing. A suspension with an expiry in the past no longer counts.
func (u *User) IsSuspended(now time.Time) bool {
	if !u.Suspended {
		return false
	}
	if u.SuspendedUntil != nil && now.After(*u.SuspendedUntil) {
		return false
	}
	return true
}
