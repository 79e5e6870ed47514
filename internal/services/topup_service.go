package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

var (
	ErrTopupTerminal = errors.New("topup already in a terminal state")
	ErrDuplicateSlip = errors.New("slip already used")
)

// TopupService manages balance top-ups, slip-verified and admin-manual.
// Balance is credited exactly at the pending -> completed transition,
// atomically with the status flip.
type TopupService struct {
	DB       *gorm.DB
	Wallet   *WalletService
	Verifier SlipVerifier
	Activity *ActivityService
	Log      *zap.Logger
}

func NewTopupService(db *gorm.DB, wallet *WalletService, verifier SlipVerifier, activity *ActivityService, log *zap.Logger) *TopupService {
	return &TopupService{DB: db, Wallet: wallet, Verifier: verifier, Activity: activity, Log: log}
}

// SubmitSlip verifies an uploaded payment slip and, when the slip parses to
// a positive amount with a fresh reference, credits the user. The unique
// slip_ref column rejects a replayed slip even if the provider's duplicate
// check missed it.
func (s *TopupService) SubmitSlip(ctx context.Context, uid string, image []byte, filename string) (*models.TopupTransaction, error) {
	if _, err := s.Wallet.GetUser(uid); err != nil {
		return nil, err
	}

	slip, err := s.Verifier.Verify(ctx, image, filename)
	if err != nil {
		return nil, err
	}
	if slip.Amount <= 0 {
		return nil, errors.New("slip amount could not be read")
	}

	topup := &models.TopupTransaction{
		Uid:           uid,
		Amount:        slip.Amount,
		PaymentMethod: slip.SenderBank,
		VerifyMethod:  models.VerifySlip,
		Status:        models.TopupPending,
		SlipRef:       &slip.TransRef,
		SenderBank:    slip.SenderBank,
		SenderName:    slip.SenderName,
		ReceiverBank:  slip.ReceiverBank,
		ParsedAmount:  slip.Amount,
	}
	if err := s.DB.Create(topup).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateSlip
		}
		return nil, err
	}

	if err := s.Complete(topup.ID); err != nil {
		return nil, err
	}

	s.DB.First(topup, topup.ID)
	s.Activity.Record(uid, "topup", "slip topup "+slip.TransRef)
	return topup, nil
}

// ManualTopup is the admin path: creates a manual-method transaction and
// completes it immediately.
func (s *TopupService) ManualTopup(uid string, amount float64, approvedBy, note string) (*models.TopupTransaction, error) {
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if _, err := s.Wallet.GetUser(uid); err != nil {
		return nil, err
	}

	topup := &models.TopupTransaction{
		Uid:           uid,
		Amount:        amount,
		PaymentMethod: note,
		VerifyMethod:  models.VerifyManual,
		Status:        models.TopupPending,
		ApprovedBy:    approvedBy,
	}
	if err := s.DB.Create(topup).Error; err != nil {
		return nil, err
	}

	if err := s.Complete(topup.ID); err != nil {
		return nil, err
	}

	s.DB.First(topup, topup.ID)
	s.Activity.Record(uid, "manual_topup", note)
	s.Activity.Notify(uid, "เติมเงินสำเร็จ", "ยอดเงินของคุณถูกเพิ่มโดยผู้ดูแลระบบ")
	return topup, nil
}

// Complete flips pending -> completed and credits the amount in a single
// transaction. The conditional update makes the credit happen at most once;
// a transaction already in a terminal state is rejected.
func (s *TopupService) Complete(id int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var topup models.TopupTransaction
		if err := tx.First(&topup, id).Error; err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.TopupTransaction{}).
			Where("id = ? AND status = ?", id, models.TopupPending).
			Updates(map[string]interface{}{
				"status":       models.TopupCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTopupTerminal
		}

		return s.Wallet.Credit(tx, topup.Uid, topup.Amount)
	})
}

// Fail flips pending -> failed with a reason. No balance movement.
func (s *TopupService) Fail(id int, reason string) error {
	res := s.DB.Model(&models.TopupTransaction{}).
		Where("id = ? AND status = ?", id, models.TopupPending).
		Updates(map[string]interface{}{
			"status":      models.TopupFailed,
			"fail_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTopupTerminal
	}
	return nil
}

type ListTopupsDTO struct {
	Uid    string
	Status string
	Page   int
	Limit  int
}

func (s *TopupService) ListTopups(data ListTopupsDTO) (common.PaginationResult, error) {
	limit := data.Limit
	if limit <= 0 {
		limit = 50
	}
	page := data.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := s.DB.Model(&models.TopupTransaction{})
	if data.Uid != "" {
		query = query.Where("uid = ?", data.Uid)
	}
	if data.Status != "" {
		query = query.Where("status = ?", data.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var topups []models.TopupTransaction
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&topups).Error; err != nil {
		return common.PaginationResult{}, err
	}

	return common.PaginateResponse(topups, total, page, limit, "Topups fetched"), nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
