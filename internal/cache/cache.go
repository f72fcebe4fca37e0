package cache

import (
	"context"
	"errors"

	"github.com/fjod/artshop/internal/domain"
)

type OrderCache interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	Set(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, orderID string) error
}

// CartStore holds session carts. Load returns an empty cart for unknown sessions.
type CartStore interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrMalformedCart accompanies an empty cart when the stored one could not be decoded.
	ErrMalformedCart = errors.New("malformed cart data")
)
