package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReference builds a provider-facing purchase reference:
// {TYPE}_{yyyymmddhhmmss}_{uuid8}. The uuid tail keeps two purchases created
// within the same second distinct; idempotency is handled separately by
// IdempotencyKey, never by this string.
func GenerateReference(productType string) string {
	tail := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s",
		strings.ToUpper(productType),
		time.Now().Format("20060102150405"),
		tail,
	)
}

// IdempotencyKey derives a stable key for one logical purchase attempt from
// the identity of the intent, not from wall-clock time. Retrying the same
// attempt yields the same key; a new attempt id yields a new one.
func IdempotencyKey(uid, productType, productID string, amount float64, attemptID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%.2f|%s", uid, productType, productID, amount, attemptID)))
	return hex.EncodeToString(sum[:])
}
