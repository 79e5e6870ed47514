package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-service/internal/config"
)

func newPeamsubFixture(handler http.HandlerFunc) (*PeamsubService, *httptest.Server) {
	server := httptest.NewServer(handler)
	cfg := &config.Config{
		PeamsubBaseURL: server.URL,
		PeamsubAPIKey:  "secret",
	}
	return NewPeamsubService(nil, nil, cfg, testLogger()), server
}

func TestPeamsubFetchProducts(t *testing.T) {
	svc, server := newPeamsubFixture(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/products", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": []interface{}{
				map[string]interface{}{
					"id": "tm-50", "name": "TrueMoney 50", "type": "cashcard",
					"price": 48.5, "recommended": 50.0,
				},
				map[string]interface{}{
					"id": "ais-100", "name": "AIS 100", "type": "mobile",
					"price": 97.0, "recommended": 100.0,
				},
				map[string]interface{}{
					"id": "ff-310", "name": "Free Fire 310", "type": "game",
					"price": 95.0, "recommended": 100.0,
				},
			},
		})
	})
	defer server.Close()

	products, err := svc.FetchProducts(context.Background())
	assert.NoError(t, err)
	if assert.Len(t, products, 3) {
		assert.Equal(t, TypeCashCard, products[0].Type)
		assert.Equal(t, TypeMobile, products[1].Type)
		assert.Equal(t, TypeGame, products[2].Type)
		assert.Equal(t, 48.5, products[0].CostPrice)
	}
}

func TestPeamsubPurchase(t *testing.T) {
	var got map[string]interface{}
	svc, server := newPeamsubFixture(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/purchase", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"transactionId": "PS777", "status": "complete"},
		})
	})
	defer server.Close()

	result, err := svc.Purchase(context.Background(), "ff-310",
		map[string]string{"playerId": "1234", "server": "th"}, "GAME_REF9")
	assert.NoError(t, err)
	assert.Equal(t, "PS777", result.TxnID)
	assert.Equal(t, "ff-310", got["productId"])
	assert.Equal(t, "1234", got["playerId"])
	assert.Equal(t, "GAME_REF9", got["reference"])
}

func TestPeamsubPurchase_Failure(t *testing.T) {
	svc, server := newPeamsubFixture(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "error",
			"message": "สินค้าหมดชั่วคราว",
		})
	})
	defer server.Close()

	_, err := svc.Purchase(context.Background(), "tm-50", nil, "CASHCARD_REF1")
	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, ProviderPeamsub, perr.Provider)
	assert.Equal(t, "สินค้าหมดชั่วคราว", perr.Message)
}

func TestPeamsubCheckOrder(t *testing.T) {
	response := map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"status": "complete", "transactionId": "PS888"},
	}
	svc, server := newPeamsubFixture(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/order/GAME_REF10", r.URL.Path)
		json.NewEncoder(w).Encode(response)
	})
	defer server.Close()

	order, err := svc.CheckOrder(context.Background(), "GAME_REF10")
	assert.NoError(t, err)
	assert.Equal(t, OrderSuccess, order.Status)
	assert.Equal(t, "PS888", order.TxnID)

	response["data"] = map[string]interface{}{"status": "cancelled"}
	order, err = svc.CheckOrder(context.Background(), "GAME_REF10")
	assert.NoError(t, err)
	assert.Equal(t, OrderFailed, order.Status)

	// Unknown reference: the order never reached the provider.
	response = map[string]interface{}{"status": "not_found"}
	order, err = svc.CheckOrder(context.Background(), "GAME_REF10")
	assert.NoError(t, err)
	assert.Equal(t, OrderFailed, order.Status)
}
