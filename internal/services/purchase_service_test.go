package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"storefront-service/internal/cache"
	"storefront-service/internal/models"
)

func newPurchaseFixture(gw ProviderGateway) *PurchaseService {
	return newPurchaseFixtureWithCache(gw, nil)
}

func newPurchaseFixtureWithCache(gw ProviderGateway, c *cache.Cache) *PurchaseService {
	wallet := NewWalletService(testDB, testLogger())
	pricing := NewPricingService(testDB, testLogger())
	activity := NewActivityService(testDB, nil, testLogger())
	settlement := NewSettlementService(testDB, wallet, nil, testLogger(), 0)
	settlement.RegisterGateway("fake", gw)

	svc := NewPurchaseService(testDB, c, wallet, pricing, settlement, activity, testLogger())
	svc.RegisterGateway("fake", gw)
	return svc
}

var testProduct = Product{
	ID:               "p1",
	Name:             "1000 Diamonds",
	Type:             TypeGame,
	CostPrice:        70,
	RecommendedPrice: 80,
}

// User with balance 100 buys a product selling at 80: balance ends at 20,
// one debited settlement, one history record charging exactly 80.
func TestPurchase_Success(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	gw := &fakeGateway{products: []Product{testProduct}, txnID: "PROV123"}
	svc := newPurchaseFixture(gw)
	createTestUser(t, "u1", 100)

	settlement, err := svc.Purchase(context.Background(), PurchaseDTO{
		Uid:          "u1",
		Provider:     "fake",
		ProductType:  TypeGame,
		ProductID:    "p1",
		PlayerInputs: map[string]string{"player_id": "555"},
		AttemptID:    uuid.NewString(),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.SettlementDebited, settlement.Status)
	assert.Equal(t, "PROV123", settlement.ProviderTxnID)
	assert.Equal(t, 80.0, settlement.SellPrice)
	assert.Equal(t, 20.0, userBalance(t, "u1"))

	var records []models.Purchase
	testDB.Where("uid = ?", "u1").Find(&records)
	if assert.Len(t, records, 1) {
		// The recorded sell price equals the amount actually debited.
		assert.Equal(t, settlement.SellPrice, records[0].SellPrice)
		assert.Equal(t, settlement.Reference, records[0].Reference)
	}
}

// Admin override sell price 50 beats the API's recommended 80.
func TestPurchase_UsesOverridePrice(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	gw := &fakeGateway{products: []Product{testProduct}, txnID: "PROV124"}
	svc := newPurchaseFixture(gw)
	createTestUser(t, "u2", 100)

	_, err := svc.Pricing.SaveOverride(SaveOverrideDTO{
		ProductType: TypeGame, ProductID: "p1", SellPrice: 50,
	})
	assert.NoError(t, err)

	settlement, err := svc.Purchase(context.Background(), PurchaseDTO{
		Uid: "u2", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: uuid.NewString(),
	})
	assert.NoError(t, err)
	assert.Equal(t, 50.0, settlement.SellPrice)
	assert.Equal(t, 50.0, userBalance(t, "u2"))
}

// Provider rejects with a business code: the reserve is returned, no history
// record exists, and the decoded message reaches the caller.
func TestPurchase_ProviderRejection(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	gw := &fakeGateway{
		products:    []Product{testProduct},
		purchaseErr: &ProviderError{Provider: ProviderWepay, Code: "30019", Message: WepayMessage("30019")},
	}
	svc := newPurchaseFixture(gw)
	createTestUser(t, "u3", 100)

	_, err := svc.Purchase(context.Background(), PurchaseDTO{
		Uid: "u3", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: uuid.NewString(),
	})

	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, "30019", perr.Code)
	assert.Equal(t, WepayMessage("30019"), perr.Message)

	// Balance fully restored, settlement refunded, no purchase record.
	assert.Equal(t, 100.0, userBalance(t, "u3"))

	var settlement models.Settlement
	assert.NoError(t, testDB.Where("uid = ?", "u3").First(&settlement).Error)
	assert.Equal(t, models.SettlementRefunded, settlement.Status)

	var count int64
	testDB.Model(&models.Purchase{}).Where("uid = ?", "u3").Count(&count)
	assert.Equal(t, int64(0), count)
}

// Replaying the same attempt id returns the original settlement and debits
// exactly once.
func TestPurchase_IdempotentReplay(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	gw := &fakeGateway{products: []Product{testProduct}, txnID: "PROV125"}
	svc := newPurchaseFixture(gw)
	createTestUser(t, "u4", 200)

	attempt := uuid.NewString()
	dto := PurchaseDTO{
		Uid: "u4", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: attempt,
	}

	first, err := svc.Purchase(context.Background(), dto)
	assert.NoError(t, err)

	second, err := svc.Purchase(context.Background(), dto)
	assert.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)

	assert.Equal(t, int64(1), gw.purchaseHits)
	assert.Equal(t, 120.0, userBalance(t, "u4"))

	// A fresh attempt id is a new purchase.
	dto.AttemptID = uuid.NewString()
	third, err := svc.Purchase(context.Background(), dto)
	assert.NoError(t, err)
	assert.NotEqual(t, first.Reference, third.Reference)
	assert.Equal(t, 40.0, userBalance(t, "u4"))
}

// Transport failure after the reserve: settlement stays pending for the
// reconciler, funds stay reserved, and the caller learns the outcome is
// undecided.
func TestPurchase_AmbiguousOutcome(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	gw := &fakeGateway{products: []Product{testProduct}, purchaseErr: errors.New("connection reset")}
	svc := newPurchaseFixture(gw)
	createTestUser(t, "u5", 100)

	settlement, err := svc.Purchase(context.Background(), PurchaseDTO{
		Uid: "u5", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrPurchaseAmbiguous)
	assert.Equal(t, models.SettlementPending, settlement.Status)
	assert.Equal(t, 20.0, userBalance(t, "u5"))
}

// A failed attempt that never created a settlement must not poison its
// attempt id: after topping up, the same attempt id goes through. With
// REDIS_URL set this exercises the claim release; without it the claim path
// is skipped and the retry still succeeds.
func TestPurchase_RetryAfterInsufficientBalance(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	var c *cache.Cache
	if addr := os.Getenv("REDIS_URL"); addr != "" {
		c = cache.New(addr)
		defer c.Close()
	}

	gw := &fakeGateway{products: []Product{testProduct}, txnID: "PROV126"}
	svc := newPurchaseFixtureWithCache(gw, c)
	createTestUser(t, "u7", 10)

	attempt := uuid.NewString()
	dto := PurchaseDTO{
		Uid: "u7", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: attempt,
	}

	_, err := svc.Purchase(context.Background(), dto)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(0), gw.purchaseHits)

	assert.NoError(t, svc.Wallet.Credit(testDB, "u7", 90))

	settlement, err := svc.Purchase(context.Background(), dto)
	assert.NoError(t, err)
	assert.Equal(t, models.SettlementDebited, settlement.Status)
	assert.Equal(t, 20.0, userBalance(t, "u7"))
}

func TestPurchase_Guards(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	noPrice := testProduct
	noPrice.ID = "p0"
	noPrice.CostPrice = 0
	noPrice.RecommendedPrice = 0

	gw := &fakeGateway{products: []Product{testProduct, noPrice}}
	svc := newPurchaseFixture(gw)
	createTestUser(t, "u6", 10)

	// Insufficient balance: refused before any provider call.
	_, err := svc.Purchase(context.Background(), PurchaseDTO{
		Uid: "u6", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(0), gw.purchaseHits)
	assert.Equal(t, 10.0, userBalance(t, "u6"))

	// A product with no price data anywhere is blocked, not free.
	_, err = svc.Purchase(context.Background(), PurchaseDTO{
		Uid: "u6", Provider: "fake", ProductType: TypeGame, ProductID: "p0",
		AttemptID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	_, err = svc.Purchase(context.Background(), PurchaseDTO{
		Uid: "u6", Provider: "fake", ProductType: TypeGame, ProductID: "nope",
		AttemptID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.Purchase(context.Background(), PurchaseDTO{
		Uid: "u6", Provider: "unknown", ProductType: TypeGame, ProductID: "p1",
		AttemptID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
