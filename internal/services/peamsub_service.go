package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-service/internal/cache"
	"storefront-service/internal/config"
	"storefront-service/internal/models"
	"storefront-service/pkg/common"
)

// PeamsubService wraps the Peamsub reseller API: product catalog plus game
// top-up, cash card and mobile airtime purchases.
type PeamsubService struct {
	DB    *gorm.DB
	Cache *cache.Cache
	Cfg   *config.Config
	Log   *zap.Logger
}

func NewPeamsubService(db *gorm.DB, c *cache.Cache, cfg *config.Config, log *zap.Logger) *PeamsubService {
	return &PeamsubService{DB: db, Cache: c, Cfg: cfg, Log: log}
}

func (s *PeamsubService) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.Cfg.PeamsubAPIKey,
	}
}

const peamsubCatalogKey = "catalog:peamsub"

// FetchProducts returns the full normalized catalog. Responses are cached
// for CatalogCacheTTL (5 minutes by default) keyed by "all products";
// RefreshProducts invalidates explicitly.
func (s *PeamsubService) FetchProducts(ctx context.Context) ([]Product, error) {
	var cached []Product
	if s.Cache != nil {
		if err := s.Cache.GetJSON(ctx, peamsubCatalogKey, &cached); err == nil {
			return cached, nil
		}
	}

	resp, err := common.Get(s.Cfg.PeamsubBaseURL+"/api/v2/products", s.headers())
	s.saveLog("products", "", nil, resp, err)
	if err != nil {
		return nil, err
	}

	respMap, ok := resp.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("peamsub: unexpected products response")
	}
	if status, _ := respMap["status"].(string); status != "success" {
		msg, _ := respMap["message"].(string)
		return nil, &ProviderError{Provider: ProviderPeamsub, Code: status, Message: msg}
	}

	items, _ := respMap["data"].([]interface{})
	products := make([]Product, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		var p Product
		p.ID, _ = item["id"].(string)
		p.Name, _ = item["name"].(string)
		p.Category, _ = item["category"].(string)
		p.Type = normalizePeamsubType(item["type"])
		p.CostPrice, _ = item["price"].(float64)
		p.RecommendedPrice, _ = item["recommended"].(float64)
		p.Description, _ = item["description"].(string)
		p.InputPattern, _ = item["format"].(string)
		products = append(products, p)
	}

	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, peamsubCatalogKey, products, s.Cfg.CatalogCacheTTL); err != nil {
			s.Log.Warn("peamsub catalog cache write failed", zap.Error(err))
		}
	}

	return products, nil
}

func normalizePeamsubType(raw interface{}) string {
	switch t, _ := raw.(string); t {
	case "cashcard", "card":
		return TypeCashCard
	case "mobile", "topup":
		return TypeMobile
	default:
		return TypeGame
	}
}

// RefreshProducts drops the cached catalog.
func (s *PeamsubService) RefreshProducts(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Delete(ctx, peamsubCatalogKey)
}

// Purchase submits an order for any Peamsub product type. Player inputs
// (id, server, phone number) are forwarded as-is.
func (s *PeamsubService) Purchase(ctx context.Context, productID string, inputs map[string]string, reference string) (*PurchaseResult, error) {
	payload := map[string]interface{}{
		"productId": productID,
		"reference": reference,
	}
	for k, v := range inputs {
		payload[k] = v
	}

	resp, err := common.Post(s.Cfg.PeamsubBaseURL+"/api/v2/purchase", payload, s.headers())
	s.saveLog("purchase", reference, payload, resp, err)
	if err != nil {
		return nil, err
	}

	respMap, ok := resp.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("peamsub: unexpected purchase response")
	}

	if status, _ := respMap["status"].(string); status != "success" {
		msg, _ := respMap["message"].(string)
		if msg == "" {
			msg = "ทำรายการไม่สำเร็จ กรุณาลองใหม่อีกครั้ง"
		}
		return nil, &ProviderError{Provider: ProviderPeamsub, Code: status, Message: msg}
	}

	data, _ := respMap["data"].(map[string]interface{})
	txnID, _ := data["transactionId"].(string)
	orderStatus, _ := data["status"].(string)
	return &PurchaseResult{TxnID: txnID, Status: orderStatus}, nil
}

// CheckOrder looks up the final state of a submitted reference.
func (s *PeamsubService) CheckOrder(ctx context.Context, reference string) (*PurchaseResult, error) {
	resp, err := common.Get(s.Cfg.PeamsubBaseURL+"/api/v2/order/"+reference, s.headers())
	s.saveLog("check_order", reference, nil, resp, err)
	if err != nil {
		return nil, err
	}

	respMap, ok := resp.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("peamsub: unexpected order response")
	}

	if status, _ := respMap["status"].(string); status != "success" {
		// An unknown reference means the order never reached the provider.
		if status == "not_found" {
			return &PurchaseResult{Status: OrderFailed}, nil
		}
		msg, _ := respMap["message"].(string)
		return nil, &ProviderError{Provider: ProviderPeamsub, Code: status, Message: msg}
	}

	data, _ := respMap["data"].(map[string]interface{})
	txnID, _ := data["transactionId"].(string)
	result := &PurchaseResult{TxnID: txnID, Status: OrderPending}
	switch orderStatus, _ := data["status"].(string); orderStatus {
	case "success", "complete":
		result.Status = OrderSuccess
	case "failed", "cancelled":
		result.Status = OrderFailed
	}
	return result, nil
}

func (s *PeamsubService) saveLog(action, reference string, request, response interface{}, callErr error) {
	if s.DB == nil {
		return
	}

	reqRaw, _ := json.Marshal(request)
	var respRaw []byte
	if callErr != nil {
		respRaw = []byte(callErr.Error())
	} else {
		respRaw, _ = json.Marshal(response)
	}

	status := 1
	if callErr != nil {
		status = 0
	}

	entry := models.ProviderLog{
		Provider:  ProviderPeamsub,
		Action:    action,
		Reference: reference,
		Request:   string(reqRaw),
		Response:  string(respRaw),
		Status:    status,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		s.Log.Warn("provider log write failed", zap.String("provider", ProviderPeamsub), zap.Error(err))
	}
}
