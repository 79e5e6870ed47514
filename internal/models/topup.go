package models

import (
	"time"
)

// Top-up transaction statuses. Completed and Failed are terminal; balance is
// credited exactly once, at the pending -> completed transition.
const (
	TopupPending   = "pending"
	TopupCompleted = "completed"
	TopupFailed    = "failed"
)

// Verification methods for a top-up.
const (
	VerifySlip   = "slip"
	VerifyManual = "manual"
)

type TopupTransaction struct {
	ID            int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Uid           string     `gorm:"column:uid;size:128;not null;index:idx_topup_uid" json:"uid"`
	Amount        float64    `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	PaymentMethod string     `gorm:"column:payment_method;size:50" json:"payment_method"`
	VerifyMethod  string     `gorm:"column:verify_method;size:20;not null" json:"verify_method"`
	Status        string     `gorm:"column:status;size:20;default:pending;index:idx_topup_status" json:"status"`
	SlipRef       *string    `gorm:"column:slip_ref;size:100;uniqueIndex" json:"slip_ref"`
	SenderBank    string     `gorm:"column:sender_bank;size:100" json:"sender_bank"`
	SenderName    string     `gorm:"column:sender_name;size:255" json:"sender_name"`
	ReceiverBank  string     `gorm:"column:receiver_bank;size:100" json:"receiver_bank"`
	ParsedAmount  float64    `gorm:"column:parsed_amount;type:decimal(20,2);default:0.00" json:"parsed_amount"`
	FailReason    string     `gorm:"column:fail_reason;size:255" json:"fail_reason"`
	ApprovedBy    string     `gorm:"column:approved_by;size:128" json:"approved_by"`
	CompletedAt   *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TopupTransaction) TableName() string {
	return "topup_transactions"
}

func (t *TopupTransaction) Terminal() bool {
	return t.Status == TopupCompleted || t.Status == TopupFailed
}
