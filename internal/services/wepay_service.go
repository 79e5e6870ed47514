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

// wePAY success code. Everything else in the body's code field is a business
// failure decoded through wepayCodes.
const wepayCodeSuccess = "00000"

// Known wePAY failure codes. Unknown codes fall back to a generic message.
var wepayCodes = map[string]string{
	"10001": "ข้อมูลคำขอไม่ถูกต้อง",
	"10002": "รหัสผู้เล่นไม่ถูกต้อง",
	"10003": "ไม่พบสินค้า หรือสินค้าปิดให้บริการชั่วคราว",
	"20013": "หมายเลขอ้างอิงซ้ำกับรายการก่อนหน้า",
	"30019": "ยอดเงินผู้ให้บริการไม่เพียงพอ กรุณาติดต่อผู้ดูแลระบบ",
	"40004": "ไม่สามารถตรวจสอบรายการได้ กรุณาลองใหม่ภายหลัง",
}

const wepayGenericError = "ทำรายการไม่สำเร็จ กรุณาลองใหม่อีกครั้ง"

// WepayService wraps the wePAY single-endpoint gateway. Every operation is a
// POST with an action field.
type WepayService struct {
	DB    *gorm.DB
	Cache *cache.Cache
	Cfg   *config.Config
	Log   *zap.Logger
}

func NewWepayService(db *gorm.DB, c *cache.Cache, cfg *config.Config, log *zap.Logger) *WepayService {
	return &WepayService{DB: db, Cache: c, Cfg: cfg, Log: log}
}

// WepayMessage resolves a wePAY failure code to its user-facing message.
func WepayMessage(code string) string {
	if msg, ok := wepayCodes[code]; ok {
		return msg
	}
	return wepayGenericError
}

func (s *WepayService) call(action string, fields map[string]interface{}, reference string) (map[string]interface{}, error) {
	payload := map[string]interface{}{
		"action":      action,
		"merchant_id": s.Cfg.WepayMerchantID,
		"key":         s.Cfg.WepayAPIKey,
	}
	for k, v := range fields {
		payload[k] = v
	}

	resp, err := common.Post(s.Cfg.WepayBaseURL+"/api/wepay-game", payload, nil)
	s.saveLog(action, reference, payload, resp, err)
	if err != nil {
		return nil, err
	}

	respMap, ok := resp.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("wepay: unexpected response shape for action %s", action)
	}

	code, _ := respMap["code"].(string)
	if code != wepayCodeSuccess {
		return nil, &ProviderError{Provider: ProviderWepay, Code: code, Message: WepayMessage(code)}
	}

	return respMap, nil
}

// Balance returns the remaining merchant balance held at wePAY.
func (s *WepayService) Balance(ctx context.Context) (float64, error) {
	resp, err := s.call("balance", nil, "")
	if err != nil {
		return 0, err
	}
	data, _ := resp["data"].(map[string]interface{})
	balance, _ := data["balance"].(float64)
	return balance, nil
}

// GameList returns the raw game catalog groups for display.
func (s *WepayService) GameList(ctx context.Context) ([]interface{}, error) {
	resp, err := s.call("game_list", nil, "")
	if err != nil {
		return nil, err
	}
	games, _ := resp["data"].([]interface{})
	return games, nil
}

const wepayCatalogKey = "catalog:wepay"

// FetchProducts returns the normalized product list, served from the catalog
// cache when fresh.
func (s *WepayService) FetchProducts(ctx context.Context) ([]Product, error) {
	var cached []Product
	if s.Cache != nil {
		if err := s.Cache.GetJSON(ctx, wepayCatalogKey, &cached); err == nil {
			return cached, nil
		}
	}

	resp, err := s.call("products", nil, "")
	if err != nil {
		return nil, err
	}

	items, _ := resp["data"].([]interface{})
	products := make([]Product, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		p := Product{Type: TypeGame}
		p.ID, _ = item["product_id"].(string)
		p.Name, _ = item["name"].(string)
		p.Category, _ = item["category"].(string)
		p.CostPrice, _ = item["price"].(float64)
		p.RecommendedPrice, _ = item["recommend_price"].(float64)
		p.Description, _ = item["detail"].(string)
		p.InputPattern, _ = item["format"].(string)
		if t, ok := item["type"].(string); ok && t != "" {
			p.Type = t
		}
		products = append(products, p)
	}

	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, wepayCatalogKey, products, s.Cfg.CatalogCacheTTL); err != nil {
			s.Log.Warn("wepay catalog cache write failed", zap.Error(err))
		}
	}

	return products, nil
}

// RefreshProducts drops the cached catalog so the next fetch hits the API.
func (s *WepayService) RefreshProducts(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.Delete(ctx, wepayCatalogKey)
}

// Purchase submits a game top-up. Player identity travels in the
// pay_to_company / pay_to_ref1 fields.
func (s *WepayService) Purchase(ctx context.Context, productID string, inputs map[string]string, reference string) (*PurchaseResult, error) {
	fields := map[string]interface{}{
		"product_id":     productID,
		"pay_to_company": inputs["pay_to_company"],
		"pay_to_ref1":    inputs["pay_to_ref1"],
		"ref":            reference,
	}
	if zone, ok := inputs["pay_to_ref2"]; ok {
		fields["pay_to_ref2"] = zone
	}

	resp, err := s.call("purchase", fields, reference)
	if err != nil {
		return nil, err
	}

	data, _ := resp["data"].(map[string]interface{})
	txnID, _ := data["transaction_id"].(string)
	status, _ := data["status"].(string)
	return &PurchaseResult{TxnID: txnID, Status: status}, nil
}

// CheckOrder asks wePAY for the final state of a previously submitted
// reference. Used by the reconciler for settlements left pending.
func (s *WepayService) CheckOrder(ctx context.Context, reference string) (*PurchaseResult, error) {
	resp, err := s.call("check_order", map[string]interface{}{"ref": reference}, reference)
	if err != nil {
		var perr *ProviderError
		if ok := asProviderError(err, &perr); ok && perr.Code == "40004" {
			return &PurchaseResult{Status: OrderPending}, nil
		}
		return nil, err
	}

	data, _ := resp["data"].(map[string]interface{})
	txnID, _ := data["transaction_id"].(string)
	result := &PurchaseResult{TxnID: txnID, Status: OrderPending}
	switch status, _ := data["status"].(string); status {
	case "success", "complete":
		result.Status = OrderSuccess
	case "failed", "refund":
		result.Status = OrderFailed
	}
	return result, nil
}

func (s *WepayService) saveLog(action, reference string, request, response interface{}, callErr error) {
	if s.DB == nil {
		return
	}

	// The merchant key must never land in provider_logs.
	if fields, ok := request.(map[string]interface{}); ok {
		redacted := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			redacted[k] = v
		}
		if _, ok := redacted["key"]; ok {
			redacted["key"] = "REDACTED"
		}
		request = redacted
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
		Provider:  ProviderWepay,
		Action:    action,
		Reference: reference,
		Request:   string(reqRaw),
		Response:  string(respRaw),
		Status:    status,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		s.Log.Warn("provider log write failed", zap.String("provider", ProviderWepay), zap.Error(err))
	}
}
