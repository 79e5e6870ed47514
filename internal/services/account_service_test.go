package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"storefront-service/internal/models"
)

func newAccountFixture() *AccountService {
	wallet := NewWalletService(testDB, testLogger())
	activity := NewActivityService(testDB, nil, testLogger())
	return NewAccountService(testDB, wallet, activity, testLogger())
}

func TestRegister_Idempotent(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	svc := newAccountFixture()

	first, err := svc.Register(RegisterDTO{Uid: "a1", Email: "a1@test.local", ShopName: "ร้านเอ"})
	assert.NoError(t, err)
	assert.Equal(t, "user", first.Role)
	assert.Equal(t, 0.0, first.Balance)

	// Registering the same uid again returns the stored row, even with
	// different profile fields in the request.
	second, err := svc.Register(RegisterDTO{Uid: "a1", Email: "other@test.local"})
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a1@test.local", second.Email)
}

// A suspended account cannot purchase until the suspension lapses or is
// lifted.
func TestSuspend_BlocksPurchases(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	accounts := newAccountFixture()
	gw := &fakeGateway{products: []Product{testProduct}, txnID: "PROVA1"}
	purchases := newPurchaseFixture(gw)
	createTestUser(t, "a2", 100)

	assert.NoError(t, accounts.Suspend(SuspendDTO{Uid: "a2", Reason: "chargeback", By: "admin1"}))

	_, err := purchases.Purchase(context.Background(), PurchaseDTO{
		Uid: "a2", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, ErrAccountSuspended)
	assert.Equal(t, 100.0, userBalance(t, "a2"))

	assert.NoError(t, accounts.Unsuspend("a2", "admin1"))
	_, err = purchases.Purchase(context.Background(), PurchaseDTO{
		Uid: "a2", Provider: "fake", ProductType: TypeGame, ProductID: "p1",
		AttemptID: uuid.NewString(),
	})
	assert.NoError(t, err)
	assert.Equal(t, 20.0, userBalance(t, "a2"))

	assert.ErrorIs(t, accounts.Suspend(SuspendDTO{Uid: "ghost", Reason: "x", By: "admin1"}), ErrUserNotFound)
}

// A timed suspension expires on its own.
func TestSuspend_UntilExpiry(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	svc := newAccountFixture()
	createTestUser(t, "a3", 0)

	past := time.Now().Add(-time.Hour)
	assert.NoError(t, svc.Suspend(SuspendDTO{Uid: "a3", Until: &past, Reason: "cooldown", By: "admin1"}))

	var user models.User
	assert.NoError(t, testDB.Where("uid = ?", "a3").First(&user).Error)
	assert.False(t, user.IsSuspended(time.Now()))
	assert.True(t, user.IsSuspended(past.Add(-time.Minute)))
}

func TestAdjustBalance(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	svc := newAccountFixture()
	createTestUser(t, "a4", 100)

	assert.NoError(t, svc.AdjustBalance("a4", 50, "compensation", "admin1"))
	assert.Equal(t, 150.0, userBalance(t, "a4"))

	assert.NoError(t, svc.AdjustBalance("a4", -30, "correction", "admin1"))
	assert.Equal(t, 120.0, userBalance(t, "a4"))

	// Admin debits obey the same floor as purchases.
	assert.ErrorIs(t, svc.AdjustBalance("a4", -500, "overdraw", "admin1"), ErrInsufficientBalance)
	assert.Equal(t, 120.0, userBalance(t, "a4"))

	assert.Error(t, svc.AdjustBalance("a4", 0, "noop", "admin1"))
}

func TestSetRole(t *testing.T) {
	if testDB == nil {
		t.Skip("Database not configured")
	}
	defer cleanup()

	svc := newAccountFixture()
	createTestUser(t, "a5", 0)

	assert.NoError(t, svc.SetRole("a5", "admin", "admin1"))
	var user models.User
	testDB.Where("uid = ?", "a5").First(&user)
	assert.Equal(t, "admin", user.Role)

	assert.Error(t, svc.SetRole("a5", "superuser", "admin1"))
	assert.ErrorIs(t, svc.SetRole("ghost", "admin", "admin1"), ErrUserNotFound)
}
