package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

// AccountService covers registration and the admin back office side of user
// management.
type AccountService struct {
	DB       *gorm.DB
	Wallet   *WalletService
	Activity *ActivityService
	Log      *zap.Logger
}

func NewAccountService(db *gorm.DB, wallet *WalletService, activity *ActivityService, log *zap.Logger) *AccountService {
	return &AccountService{DB: db, Wallet: wallet, Activity: activity, Log: log}
}

type RegisterDTO struct {
	Uid      string
	Email    string
	ShopName string
}

// Register creates the local account row for an authenticated subject.
// Idempotent: an existing uid returns the stored account unchanged.
func (s *AccountService) Register(data RegisterDTO) (*models.User, error) {
	var existing models.User
	err := s.DB.Where("uid = ?", data.Uid).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := models.User{
		Uid:      data.Uid,
		Email:    data.Email,
		ShopName: data.ShopName,
		Role:     "user",
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}

	s.Activity.Record(data.Uid, "register", data.Email)
	return &user, nil
}

type ListUsersDTO struct {
	Search string
	Page   int
	Limit  int
}

func (s *AccountService) ListUsers(data ListUsersDTO) (common.PaginationResult, error) {
	limit := data.Limit
	if limit <= 0 {
		limit = 50
	}
	page := data.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := s.DB.Model(&models.User{})
	if data.Search != "" {
		like := "%" + data.Search + "%"
		query = query.Where("email LIKE ? OR shop_name LIKE ? OR uid LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return common.PaginationResult{}, err
	}

	return common.PaginateResponse(users, total, page, limit, "Users fetched"), nil
}

type SuspendDTO struct {
	Uid    string
	Until  *time.Time
	Reason string
	By     string
}

func (s *AccountService) Suspend(data SuspendDTO) error {
	res := s.DB.Model(&models.User{}).
		Where("uid = ?", data.Uid).
		Updates(map[string]interface{}{
			"suspended":       true,
			"suspended_until": data.Until,
			"suspend_reason":  data.Reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.Activity.Record(data.By, "suspend_user", data.Uid+": "+data.Reason)
	s.Activity.Notify(data.Uid, "บัญชีถูกระงับ", data.Reason)
	return nil
}

func (s *AccountService) Unsuspend(uid, by string) error {
	res := s.DB.Model(&models.User{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"suspended":       false,
			"suspended_until": nil,
			"suspend_reason":  "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.Activity.Record(by, "unsuspend_user", uid)
	return nil
}

func (s *AccountService) SetRole(uid, role, by string) error {
	if role != "admin" && role != "user" {
		return errors.New("invalid role")
	}

	res := s.DB.Model(&models.User{}).Where("uid = ?", uid).UpdateColumn("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.Activity.Record(by, "set_role", uid+" -> "+role)
	return nil
}

// AdjustBalance applies an admin credit (positive amount) or debit
// (negative). Debits go through the conditional wallet debit, so an
// adjustment can never push a balance negative.
func (s *AccountService) AdjustBalance(uid string, amount float64, note, by string) error {
	if amount == 0 {
		return errors.New("amount must be non-zero")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if amount > 0 {
			return s.Wallet.Credit(tx, uid, amount)
		}
		return s.Wallet.Debit(tx, uid, -amount)
	})
	if err != nil {
		return err
	}

	s.Activity.Record(by, "adjust_balance", fmt.Sprintf("%s %+.2f: %s", uid, amount, note))
	s.Activity.Notify(uid, "ยอดเงินถูกปรับ", note)
	return nil
}
