package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-service/internal/models"
)

func TestResolvePrice_OverrideWins(t *testing.T) {
	override := &models.PriceOverride{SellPrice: 50}

	// Override beats both API prices regardless of their values.
	assert.Equal(t, 50.0, ResolvePrice(override, 40, 45))
	assert.Equal(t, 50.0, ResolvePrice(override, 0, 0))
	assert.Equal(t, 50.0, ResolvePrice(override, 100, 200))
}

func TestResolvePrice_Fallbacks(t *testing.T) {
	// No override: recommended price first.
	assert.Equal(t, 45.0, ResolvePrice(nil, 40, 45))

	// No recommended: cost price.
	assert.Equal(t, 40.0, ResolvePrice(nil, 40, 0))

	// Nothing anywhere: 0, which blocks the purchase downstream.
	assert.Equal(t, 0.0, ResolvePrice(nil, 0, 0))

	// An override row with an unset sell price does not short-circuit.
	assert.Equal(t, 45.0, ResolvePrice(&models.PriceOverride{SellPrice: 0}, 40, 45))
}

func TestResolveSellPrice_WithStore(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	svc := NewPricingService(testDB, testLogger())

	_, err := svc.SaveOverride(SaveOverrideDTO{
		ProductType: TypeGame,
		ProductID:   "X",
		Name:        "Product X",
		CostPrice:   40,
		SellPrice:   50,
		UpdatedBy:   "admin1",
	})
	assert.NoError(t, err)

	price, err := svc.ResolveSellPrice(TypeGame, "X", 40, 45)
	assert.NoError(t, err)
	assert.Equal(t, 50.0, price)

	// Another product of the same id but different type is unaffected.
	price, err = svc.ResolveSellPrice(TypeCashCard, "X", 40, 45)
	assert.NoError(t, err)
	assert.Equal(t, 45.0, price)

	// Deleting the override reverts to API pricing.
	assert.NoError(t, svc.DeleteOverride(TypeGame, "X"))
	price, err = svc.ResolveSellPrice(TypeGame, "X", 40, 45)
	assert.NoError(t, err)
	assert.Equal(t, 45.0, price)
}

func TestSaveOverride_Upsert(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	svc := NewPricingService(testDB, testLogger())

	first, err := svc.SaveOverride(SaveOverrideDTO{ProductType: TypeGame, ProductID: "Y", SellPrice: 30})
	assert.NoError(t, err)

	second, err := svc.SaveOverride(SaveOverrideDTO{ProductType: TypeGame, ProductID: "Y", SellPrice: 35})
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 35.0, second.SellPrice)

	var count int64
	testDB.Model(&models.PriceOverride{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
