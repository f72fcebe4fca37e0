package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisCartStore(client *redis.Client, baseTTL time.Duration) *RedisCartStore {
	return &RedisCartStore{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisCartStore persists only the items of a session cart; totals are
// recomputed on every load.
type RedisCartStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCartStore) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCart(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	cart, err := domain.DecodeCart(data)
	if err != nil {
		return cart, fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}
	return cart, nil
}

func (r RedisCartStore) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	data, err := domain.EncodeCart(cart)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, cartKey(sessionID), data, jittered(r.baseTTL, time.Hour)).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCartStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
