package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/cache"
	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

var (
	ErrAccountSuspended  = errors.New("account suspended")
	ErrPriceUnavailable  = errors.New("price unavailable for this product")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateAttempt  = errors.New("purchase attempt already in progress")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrPurchaseAmbiguous = errors.New("purchase outcome pending, awaiting reconciliation")
)

// PurchaseService orchestrates a storefront purchase: resolve the sell
// price, reserve funds, call the provider, settle. The order matters: money
// is reserved and the settlement row is durable before the provider is ever
// contacted, so no outcome can leave the user charged without a record.
type PurchaseService struct {
	DB         *gorm.DB
	Cache      *cache.Cache
	Wallet     *WalletService
	Pricing    *PricingService
	Settlement *SettlementService
	Activity   *ActivityService
	Log        *zap.Logger
	Gateways   map[string]ProviderGateway
}

func NewPurchaseService(db *gorm.DB, c *cache.Cache, wallet *WalletService, pricing *PricingService, settlement *SettlementService, activity *ActivityService, log *zap.Logger) *PurchaseService {
	return &PurchaseService{
		DB:         db,
		Cache:      c,
		Wallet:     wallet,
		Pricing:    pricing,
		Settlement: settlement,
		Activity:   activity,
		Log:        log,
		Gateways:   make(map[string]ProviderGateway),
	}
}

func (s *PurchaseService) RegisterGateway(name string, gw ProviderGateway) {
	s.Gateways[name] = gw
}

type PurchaseDTO struct {
	Uid          string
	Provider     string
	ProductType  string
	ProductID    string
	PlayerInputs map[string]string
	AttemptID    string
}

// Purchase runs the full flow for one purchase attempt. Replaying the same
// attempt (same AttemptID) returns the settlement created the first time and
// never debits twice.
func (s *PurchaseService) Purchase(ctx context.Context, data PurchaseDTO) (*models.Settlement, error) {
	gw, ok := s.Gateways[data.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	user, err := s.Wallet.GetUser(data.Uid)
	if err != nil {
		return nil, err
	}
	if user.IsSuspended(time.Now()) {
		return nil, ErrAccountSuspended
	}

	product, err := s.findProduct(ctx, gw, data.ProductID)
	if err != nil {
		return nil, err
	}

	sellPrice, err := s.Pricing.ResolveSellPrice(data.ProductType, data.ProductID, product.CostPrice, product.RecommendedPrice)
	if err != nil {
		return nil, err
	}
	if sellPrice <= 0 {
		// No price data anywhere means blocked, never free.
		return nil, ErrPriceUnavailable
	}

	idemKey := common.IdempotencyKey(data.Uid, data.ProductType, data.ProductID, sellPrice, data.AttemptID)
	if existing, err := s.findByIdempotencyKey(idemKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	if s.Cache != nil {
		claimed, err := s.Cache.ClaimOnce(ctx, "purchase:idem:"+idemKey, data.Uid, 24*time.Hour)
		if err != nil {
			// Redis being down must not take purchases down with it; the
			// settlement table's unique key still blocks a double debit.
			s.Log.Warn("idempotency claim unavailable", zap.Error(err))
		} else if !claimed {
			if existing, err := s.findByIdempotencyKey(idemKey); err == nil && existing != nil {
				return existing, nil
			}
			return nil, ErrDuplicateAttempt
		}

		lock := s.Cache.NewLock("purchase:lock:"+data.Uid, uuid.NewString(), 30*time.Second)
		if err := lock.Acquire(ctx, 200*time.Millisecond, 25); err != nil {
			s.Log.Warn("purchase lock unavailable", zap.String("uid", data.Uid), zap.Error(err))
		} else {
			defer lock.Unlock(ctx)
		}
	}

	settlement, err := s.reserve(data, product, sellPrice, idemKey)
	if err != nil {
		// No settlement was created, so the claim must not outlive this
		// attempt: the user fixes the cause (tops up) and retries with the
		// same attempt id.
		s.releaseClaim(ctx, idemKey)
		return nil, err
	}

	result, err := gw.Purchase(ctx, data.ProductID, data.PlayerInputs, settlement.Reference)
	if err != nil {
		var perr *ProviderError
		if asProviderError(err, &perr) {
			// A definitive provider rejection: release the reserve and
			// surface the decoded message. No history entry is written for
			// a charge that never happened.
			if refundErr := s.Settlement.Refund(settlement, perr.Message); refundErr != nil && !errors.Is(refundErr, ErrSettlementTerminal) {
				s.Log.Error("refund after provider rejection failed",
					zap.String("reference", settlement.Reference), zap.Error(refundErr))
				return nil, refundErr
			}
			return nil, perr
		}

		// Network failure or malformed response: the provider may or may
		// not have fulfilled the order. Leave the settlement pending for
		// the reconciler instead of guessing.
		s.Log.Warn("purchase outcome unknown, left for reconciliation",
			zap.String("reference", settlement.Reference), zap.Error(err))
		return settlement, ErrPurchaseAmbiguous
	}

	if err := s.Settlement.Commit(settlement, result.TxnID); err != nil && !errors.Is(err, ErrSettlementTerminal) {
		return nil, err
	}

	s.Activity.Record(data.Uid, "purchase",
		fmt.Sprintf("%s %s (%s) for %.2f", data.Provider, product.Name, settlement.Reference, sellPrice))

	return settlement, nil
}

// releaseClaim frees the idempotency claim for an attempt that created no
// settlement. Best-effort: if the delete fails the claim expires with its
// TTL and the settlement table's unique key still decides.
func (s *PurchaseService) releaseClaim(ctx context.Context, idemKey string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, "purchase:idem:"+idemKey); err != nil {
		s.Log.Warn("idempotency claim release failed", zap.Error(err))
	}
}

// reserve debits the sell price and creates the pending settlement in one
// database transaction. This is the primary, durable money write; the
// provider call only happens once it has committed.
func (s *PurchaseService) reserve(data PurchaseDTO, product *Product, sellPrice float64, idemKey string) (*models.Settlement, error) {
	playerRef, _ := json.Marshal(data.PlayerInputs)

	settlement := &models.Settlement{
		Reference:      common.GenerateReference(data.ProductType),
		IdempotencyKey: idemKey,
		Uid:            data.Uid,
		Provider:       data.Provider,
		ProductType:    data.ProductType,
		ProductID:      data.ProductID,
		ProductName:    product.Name,
		SellPrice:      sellPrice,
		CostPrice:      product.CostPrice,
		PlayerRef:      string(playerRef),
		Status:         models.SettlementPending,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.Wallet.Debit(tx, data.Uid, sellPrice); err != nil {
			return err
		}
		return tx.Create(settlement).Error
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *PurchaseService) findByIdempotencyKey(key string) (*models.Settlement, error) {
	var settlement models.Settlement
	err := s.DB.Where("idempotency_key = ?", key).First(&settlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (s *PurchaseService) findProduct(ctx context.Context, gw ProviderGateway, productID string) (*Product, error) {
	products, err := gw.FetchProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, ErrProductNotFound
}

// ListPurchases pages through a user's purchase history.
func (s *PurchaseService) ListPurchases(uid string, page, limit int) (common.PaginationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := s.DB.Model(&models.Purchase{}).Where("uid = ?", uid)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var purchases []models.Purchase
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&purchases).Error; err != nil {
		return common.PaginationResult{}, err
	}

	return common.PaginateResponse(purchases, total, page, limit, "Purchases fetched"), nil
}
