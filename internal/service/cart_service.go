package service

import (
	"context"
	"errors"

	"github.com/fjod/artshop/internal/cache"
	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
	"github.com/fjod/artshop/pkg/logger"
	"go.uber.org/zap"
)

// CartService owns session carts. Each call loads the cart of the session,
// applies one mutation and saves it back.
type CartService struct {
	store    cache.CartStore
	artworks repository.ArtworkRepository
	orders   *OrderService
	log      *zap.Logger
}

func NewCartService(store cache.CartStore, artworks repository.ArtworkRepository, orders *OrderService, log *zap.Logger) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{
		store:    store,
		artworks: artworks,
		orders:   orders,
		log:      log,
	}
}

// Load restores the session cart. Malformed stored data yields an empty cart.
func (s *CartService) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.store.Load(ctx, sessionID)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, cache.ErrMalformedCart) {
		logger.FromContextOr(ctx, s.log).Warn("discarding malformed cart",
			zap.String("session", sessionID),
			zap.Error(err))
		return domain.NewCart(), nil
	}
	return nil, domain.NewUpstreamError("failed to load cart", err)
}

// AddItem adds one unit of an available catalog artwork.
func (s *CartService) AddItem(ctx context.Context, sessionID string, artworkID int64) (*domain.Cart, error) {
	artwork, err := s.artworks.GetByID(ctx, artworkID)
	if err != nil {
		return nil, translate(err, "failed to load artwork")
	}
	if !artwork.Available {
		return nil, domain.ErrArtworkNotAvailable
	}

	return s.update(ctx, sessionID, func(c *domain.Cart) {
		c.AddItem(artwork.CartItem(1))
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, artworkID int64) (*domain.Cart, error) {
	return s.update(ctx, sessionID, func(c *domain.Cart) {
		c.RemoveItem(artworkID)
	})
}

// SetQuantity replaces the quantity of an item. Quantities below one leave
// the cart untouched; quantities above domain.MaxQuantity are rejected.
func (s *CartService) SetQuantity(ctx context.Context, sessionID string, artworkID int64, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return s.Load(ctx, sessionID)
	}
	if quantity > domain.MaxQuantity {
		return nil, domain.ErrQuantityTooLarge
	}
	return s.update(ctx, sessionID, func(c *domain.Cart) {
		c.SetQuantity(artworkID, quantity)
	})
}

func (s *CartService) Clear(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return nil, domain.NewUpstreamError("failed to clear cart", err)
	}
	return domain.NewCart(), nil
}

type CheckoutInput struct {
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

// Checkout places an order for the session cart and clears the cart once the
// order is stored. Only ids and quantities of the cart are used; prices come
// from the catalog.
func (s *CartService) Checkout(ctx context.Context, p domain.Principal, sessionID string, in CheckoutInput) (*domain.Order, error) {
	cart, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrNoItems
	}

	items := cart.Items()
	lines := make([]domain.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.Line{ArtworkID: item.ID, Quantity: item.Quantity})
	}

	order, err := s.orders.CreateOrder(ctx, p, CreateOrderInput{
		Lines:           lines,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		IdempotencyKey:  in.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	if errDelete := s.store.Delete(ctx, sessionID); errDelete != nil {
		logger.FromContextOr(ctx, s.log).Warn("cart clear after checkout failed",
			zap.String("session", sessionID),
			zap.String("order_id", order.ID),
			zap.Error(errDelete))
	}
	return order, nil
}

func (s *CartService) update(ctx context.Context, sessionID string, mutate func(*domain.Cart)) (*domain.Cart, error) {
	cart, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	mutate(cart)
	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, domain.NewUpstreamError("failed to save cart", err)
	}
	return cart, nil
}
