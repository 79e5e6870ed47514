package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

type Cache struct {
	client *redis.Client
}

func New(addr string) *Cache {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Cache{client: client}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// GetJSON loads a cached value into dest. Returns ErrMiss when the key is
// absent or expired.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// ClaimOnce sets key only if it does not exist yet. Used as the idempotency
// guard in front of the provider gateways: the first caller with a given key
// wins, replays see false.
func (c *Cache) ClaimOnce(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

// unlockScript deletes the lock only when held by the caller, so an expired
// holder cannot release a lock that has since been re-acquired.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Lock is a per-key mutex built on SET NX with TTL. Purchases take one per
// user so a single user's purchases are serialized while different users
// proceed concurrently.
type Lock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

func (c *Cache) NewLock(key, value string, ttl time.Duration) *Lock {
	return &Lock{client: c.client, key: key, value: value, ttl: ttl}
}

func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
}

// Acquire retries TryLock until it succeeds, the retries run out, or ctx is
// cancelled.
func (l *Lock) Acquire(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return errors.New("lock acquisition failed")
}

func (l *Lock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err()
}
