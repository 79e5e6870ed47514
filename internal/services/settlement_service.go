package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

// Task type shared with the worker (duplicated to avoid an import cycle).
const TypeSettlementReconcile = "settlement:reconcile"

type ReconcilePayload struct {
	Reference string `json:"reference"`
}

var ErrSettlementTerminal = errors.New("settlement already settled")

// SettlementService owns the pending -> debited | refunded state machine.
// A settlement is created with the user's funds already reserved; Commit
// keeps the debit and writes history, Refund returns the reserve. The
// reconciler drives settlements whose provider outcome was never observed.
type SettlementService struct {
	DB       *gorm.DB
	Wallet   *WalletService
	Asynq    *asynq.Client
	Log      *zap.Logger
	Gateways map[string]ProviderGateway
	Timeout  time.Duration
}

func NewSettlementService(db *gorm.DB, wallet *WalletService, client *asynq.Client, log *zap.Logger, timeout time.Duration) *SettlementService {
	return &SettlementService{
		DB:       db,
		Wallet:   wallet,
		Asynq:    client,
		Log:      log,
		Gateways: make(map[string]ProviderGateway),
		Timeout:  timeout,
	}
}

func (s *SettlementService) RegisterGateway(name string, gw ProviderGateway) {
	s.Gateways[name] = gw
}

// Commit finalizes a pending settlement as debited. The conditional update
// makes the transition idempotent: a settlement already settled is left
// untouched and no second history record is written.
func (s *SettlementService) Commit(settlement *models.Settlement, providerTxnID string) error {
	now := time.Now()
	res := s.DB.Model(&models.Settlement{}).
		Where("id = ? AND status = ?", settlement.ID, models.SettlementPending).
		Updates(map[string]interface{}{
			"status":          models.SettlementDebited,
			"provider_txn_id": providerTxnID,
			"settled_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSettlementTerminal
	}

	settlement.Status = models.SettlementDebited
	settlement.ProviderTxnID = providerTxnID
	settlement.SettledAt = &now

	s.recordPurchase(settlement)
	return nil
}

// Refund finalizes a pending settlement as refunded and returns the reserved
// amount to the user, in one transaction. Safe to call on a settlement that
// has since reached a terminal state.
func (s *SettlementService) Refund(settlement *models.Settlement, reason string) error {
	now := time.Now()
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Settlement{}).
			Where("id = ? AND status = ?", settlement.ID, models.SettlementPending).
			Updates(map[string]interface{}{
				"status":      models.SettlementRefunded,
				"fail_reason": reason,
				"settled_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSettlementTerminal
		}
		return s.Wallet.Credit(tx, settlement.Uid, settlement.SellPrice)
	})
	if err != nil {
		return err
	}

	settlement.Status = models.SettlementRefunded
	settlement.FailReason = reason
	settlement.SettledAt = &now
	return nil
}

// recordPurchase appends the descriptive history entry. Best-effort: a
// failure degrades to a reduced record, and a second failure only logs.
// Settlements stay authoritative either way.
func (s *SettlementService) recordPurchase(settlement *models.Settlement) {
	record := models.Purchase{
		Uid:           settlement.Uid,
		Reference:     settlement.Reference,
		Provider:      settlement.Provider,
		ProductType:   settlement.ProductType,
		ProductID:     settlement.ProductID,
		ProductName:   settlement.ProductName,
		SellPrice:     settlement.SellPrice,
		CostPrice:     settlement.CostPrice,
		ProviderTxnID: settlement.ProviderTxnID,
		Status:        settlement.Status,
	}
	if err := s.DB.Create(&record).Error; err != nil {
		s.Log.Warn("purchase history write failed, retrying reduced record",
			zap.String("reference", settlement.Reference), zap.Error(err))

		reduced := models.Purchase{
			Uid:       settlement.Uid,
			Reference: settlement.Reference,
			SellPrice: settlement.SellPrice,
			Status:    settlement.Status,
		}
		if err := s.DB.Create(&reduced).Error; err != nil {
			s.Log.Error("reduced purchase history write failed",
				zap.String("reference", settlement.Reference), zap.Error(err))
		}
	}
}

// Reconcile resolves one settlement left pending: asks the provider for the
// order's final state and commits or refunds accordingly. A still-pending
// provider order is left for the next sweep.
func (s *SettlementService) Reconcile(ctx context.Context, reference string) error {
	var settlement models.Settlement
	if err := s.DB.Where("reference = ?", reference).First(&settlement).Error; err != nil {
		return err
	}
	if settlement.Terminal() {
		return nil
	}

	gw, ok := s.Gateways[settlement.Provider]
	if !ok {
		return fmt.Errorf("no gateway registered for provider %s", settlement.Provider)
	}

	order, err := gw.CheckOrder(ctx, settlement.Reference)
	if err != nil {
		return err
	}

	switch order.Status {
	case OrderSuccess:
		s.Log.Info("reconciler committing settlement", zap.String("reference", reference))
		return s.Commit(&settlement, order.TxnID)
	case OrderFailed:
		s.Log.Info("reconciler refunding settlement", zap.String("reference", reference))
		return s.Refund(&settlement, "provider order failed")
	default:
		s.Log.Info("settlement still pending at provider", zap.String("reference", reference))
		return nil
	}
}

// EnqueueStale finds settlements pending longer than the timeout and queues
// a reconcile task for each.
func (s *SettlementService) EnqueueStale() error {
	cutoff := time.Now().Add(-s.Timeout)

	var stale []models.Settlement
	if err := s.DB.Where("status = ? AND created_at < ?", models.SettlementPending, cutoff).
		Find(&stale).Error; err != nil {
		return err
	}

	for _, settlement := range stale {
		payload, err := json.Marshal(ReconcilePayload{Reference: settlement.Reference})
		if err != nil {
			return err
		}
		task := asynq.NewTask(TypeSettlementReconcile, payload)
		if _, err := s.Asynq.Enqueue(task, asynq.Queue("critical"), asynq.MaxRetry(5)); err != nil {
			s.Log.Error("failed to enqueue reconcile task",
				zap.String("reference", settlement.Reference), zap.Error(err))
		}
	}

	if len(stale) > 0 {
		s.Log.Info("queued stale settlements for reconciliation", zap.Int("count", len(stale)))
	}
	return nil
}

// StartScheduler runs the stale-settlement sweep every 5 minutes.
func (s *SettlementService) StartScheduler() {
	c := cron.New()
	_, err := c.AddFunc("*/5 * * * *", func() {
		if err := s.EnqueueStale(); err != nil {
			s.Log.Error("stale settlement sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		s.Log.Error("failed to schedule settlement sweep", zap.Error(err))
		return
	}
	c.Start()
	s.Log.Info("settlement reconciliation scheduler started")
}

// ListSettlements is the admin view, optionally filtered by status.
func (s *SettlementService) ListSettlements(status string, page, limit int) (common.PaginationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := s.DB.Model(&models.Settlement{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var settlements []models.Settlement
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&settlements).Error; err != nil {
		return common.PaginationResult{}, err
	}

	return common.PaginateResponse(settlements, total, page, limit, "Settlements fetched"), nil
}
