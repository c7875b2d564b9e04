package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/looprex/checkout/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseTTL   = 15 * time.Minute
	defaultMaxJitter = 5 * time.Minute
)

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{
		client:    client,
		baseTTL:   defaultBaseTTL,
		maxJitter: defaultMaxJitter,
	}
}

// RedisCache stores carts as JSON under cart:<userID>. Entries expire after
// the base TTL plus a random jitter so that carts written together do not
// expire together.
type RedisCache struct {
	client    redis.Cmdable
	baseTTL   time.Duration
	maxJitter time.Duration
}

func (r *RedisCache) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID int64, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(userID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	if r.maxJitter <= 0 {
		return r.baseTTL
	}
	return r.baseTTL + rand.N(r.maxJitter)
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}
