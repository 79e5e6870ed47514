package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/models"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// WalletService owns the authoritative balance field on users. All debits go
// through the conditional update in Debit, so a balance can never go negative
// even under concurrent purchases.
type WalletService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewWalletService(db *gorm.DB, log *zap.Logger) *WalletService {
	return &WalletService{DB: db, Log: log}
}

func (s *WalletService) GetUser(uid string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Debit subtracts amount in a single conditional update: the row is only
// touched when the current balance covers the amount. Zero rows affected
// means insufficient funds. Runs on the caller's transaction so the debit
// commits together with the settlement row.
func (s *WalletService) Debit(tx *gorm.DB, uid string, amount float64) error {
	if amount <= 0 {
		return errors.New("debit amount must be positive")
	}

	res := tx.Model(&models.User{}).
		Where("uid = ? AND balance >= ?", uid, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		tx.Model(&models.User{}).Where("uid = ?", uid).Count(&count)
		if count == 0 {
			return ErrUserNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}

// Credit adds amount with an atomic increment.
func (s *WalletService) Credit(tx *gorm.DB, uid string, amount float64) error {
	if amount <= 0 {
		return errors.New("credit amount must be positive")
	}

	res := tx.Model(&models.User{}).
		Where("uid = ?", uid).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Balance reads the stored balance.
func (s *WalletService) Balance(uid string) (float64, error) {
	user, err := s.GetUser(uid)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}
