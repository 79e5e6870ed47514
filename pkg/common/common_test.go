package common

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference("game")
	assert.Regexp(t, regexp.MustCompile(`^GAME_\d{14}_[0-9a-f]{8}$`), ref)

	// Two references in the same second still differ.
	assert.NotEqual(t, ref, GenerateReference("game"))

	assert.Regexp(t, regexp.MustCompile(`^CASHCARD_`), GenerateReference("cashcard"))
}

func TestIdempotencyKey(t *testing.T) {
	key := IdempotencyKey("u1", "game", "p1", 80, "attempt-1")

	// Stable for the same attempt, regardless of when it is computed.
	assert.Equal(t, key, IdempotencyKey("u1", "game", "p1", 80, "attempt-1"))
	assert.Len(t, key, 64)

	// Any component changing yields a different key.
	assert.NotEqual(t, key, IdempotencyKey("u2", "game", "p1", 80, "attempt-1"))
	assert.NotEqual(t, key, IdempotencyKey("u1", "game", "p2", 80, "attempt-1"))
	assert.NotEqual(t, key, IdempotencyKey("u1", "game", "p1", 80.01, "attempt-1"))
	assert.NotEqual(t, key, IdempotencyKey("u1", "game", "p1", 80, "attempt-2"))
}

func TestPaginateResponse(t *testing.T) {
	result := PaginateResponse([]string{"a", "b"}, 10, 2, 2, "")
	assert.Equal(t, "success", result.Message)
	assert.Equal(t, int64(10), result.Count)
	assert.Equal(t, 2, result.CurrentPage)
	assert.Equal(t, 3, result.NextPage)
	assert.Equal(t, 1, result.PrevPage)
	assert.Equal(t, 5, result.LastPage)

	first := PaginateResponse(nil, 3, 1, 2, "Topups fetched")
	assert.Equal(t, "Topups fetched", first.Message)
	assert.Equal(t, 0, first.PrevPage)
	assert.Equal(t, 2, first.LastPage)

	last := PaginateResponse(nil, 3, 2, 2, "")
	assert.Equal(t, 0, last.NextPage)
}
