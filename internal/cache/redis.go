package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisCache is the read-through cache for orders.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// setIfNewer stores the order unless the key already holds a higher revision.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'revision')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'revision', ARGV[1], 'order', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (r RedisCache) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	key := cacheKey(orderID)

	data, err := r.client.HGet(ctx, key, "order").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order domain.Order
	if err2 := json.Unmarshal(data, &order); err2 != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", err2)
	}

	return &order, nil
}

// Set caches order. A write carrying an older revision than the cached one
// is dropped.
func (r RedisCache) Set(ctx context.Context, order *domain.Order) error {
	key := cacheKey(order.ID)
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	ttl := jittered(r.baseTTL, time.Minute)
	err = setIfNewer.Run(ctx, r.client, []string{key}, order.Revision, data, ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, orderID string) error {
	if err := r.client.Del(ctx, cacheKey(orderID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}

// jittered adds up to four units of step to base so keys written together
// do not expire together.
func jittered(base, step time.Duration) time.Duration {
	return base + time.Duration(rand.Intn(5))*step
}
