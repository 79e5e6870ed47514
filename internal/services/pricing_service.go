package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

// PricingService resolves effective sell prices and manages admin overrides.
type PricingService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewPricingService(db *gorm.DB, log *zap.Logger) *PricingService {
	return &PricingService{DB: db, Log: log}
}

// ResolvePrice applies the price fallback chain against an already-loaded
// override (nil when none exists): override sell price, then the provider's
// recommended price, then the raw cost price, then 0. Callers must treat 0 as
// "price unavailable" and refuse the purchase; 0 never means free.
func ResolvePrice(override *models.PriceOverride, apiCost, apiRecommended float64) float64 {
	if override != nil && override.SellPrice > 0 {
		return override.SellPrice
	}
	if apiRecommended > 0 {
		return apiRecommended
	}
	if apiCost > 0 {
		return apiCost
	}
	return 0
}

// ResolveSellPrice looks up the override for (productType, productID) and
// runs the fallback chain.
func (s *PricingService) ResolveSellPrice(productType, productID string, apiCost, apiRecommended float64) (float64, error) {
	override, err := s.findOverride(productType, productID)
	if err != nil {
		return 0, err
	}
	return ResolvePrice(override, apiCost, apiRecommended), nil
}

func (s *PricingService) findOverride(productType, productID string) (*models.PriceOverride, error) {
	var override models.PriceOverride
	err := s.DB.Where("code = ?", models.OverrideCode(productType, productID)).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

type SaveOverrideDTO struct {
	ProductType string
	ProductID   string
	Name        string
	Category    string
	CostPrice   float64
	SellPrice   float64
	UpdatedBy   string
}

// SaveOverride creates or replaces the override for one product.
func (s *PricingService) SaveOverride(data SaveOverrideDTO) (*models.PriceOverride, error) {
	code := models.OverrideCode(data.ProductType, data.ProductID)

	var override models.PriceOverride
	err := s.DB.Where("code = ?", code).First(&override).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	override.Code = code
	override.ProductType = data.ProductType
	override.ProductID = data.ProductID
	override.Name = data.Name
	override.Category = data.Category
	override.CostPrice = data.CostPrice
	override.SellPrice = data.SellPrice
	override.UpdatedBy = data.UpdatedBy

	if err := s.DB.Save(&override).Error; err != nil {
		return nil, err
	}
	return &override, nil
}

// DeleteOverride reverts one product to API pricing.
func (s *PricingService) DeleteOverride(productType, productID string) error {
	return s.DB.Where("code = ?", models.OverrideCode(productType, productID)).
		Delete(&models.PriceOverride{}).Error
}

func (s *PricingService) ListOverrides(page, limit int) (common.PaginationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	query := s.DB.Model(&models.PriceOverride{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var overrides []models.PriceOverride
	if err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&overrides).Error; err != nil {
		return common.PaginationResult{}, err
	}

	return common.PaginateResponse(overrides, total, page, limit, "Overrides fetched"), nil
}
