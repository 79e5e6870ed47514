package services

import (
	"context"
	"errors"
	"fmt"
)

// Product types carried on catalog items, overrides and settlements.
const (
	TypeGame     = "game"
	TypeCashCard = "cashcard"
	TypeMobile   = "mobile"
)

// Provider identifiers.
const (
	ProviderPeamsub = "peamsub"
	ProviderWepay   = "wepay"
)

// Product is the normalized catalog item shape shared by all providers.
// Products are never persisted; they live in the provider response and the
// short-lived catalog cache.
type Product struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	Type             string  `json:"type"`
	CostPrice        float64 `json:"cost_price"`
	RecommendedPrice float64 `json:"recommended_price"`
	Description      string  `json:"description"`
	InputPattern     string  `json:"input_pattern"`
}

// PurchaseResult is the normalized outcome of a provider purchase or
// order-check call. TxnID may be empty when the provider does not report one
// for the reference.
type PurchaseResult struct {
	TxnID  string
	Status string
}

// Order states reported by CheckOrder.
const (
	OrderSuccess = "success"
	OrderFailed  = "failed"
	OrderPending = "pending"
)

// ProviderError is a business-level rejection from a provider: the HTTP call
// succeeded but the body carried a failure code. Message is already decoded
// for the end user.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
}

func asProviderError(err error, target **ProviderError) bool {
	return errors.As(err, target)
}

// ProviderGateway is what the purchase flow and the reconciler need from a
// provider wrapper. Both Peamsub and wePAY implement it.
type ProviderGateway interface {
	FetchProducts(ctx context.Context) ([]Product, error)
	Purchase(ctx context.Context, productID string, inputs map[string]string, reference string) (*PurchaseResult, error)
	CheckOrder(ctx context.Context, reference string) (*PurchaseResult, error)
}
