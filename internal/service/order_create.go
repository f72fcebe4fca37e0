package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
	"go.uber.org/zap"
)

type CreateOrderInput struct {
	Lines           []domain.Line
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

// CreateOrder prices the requested lines from the catalog and persists a new
// pending order. Client supplied prices are never consulted.
func (s *OrderService) CreateOrder(ctx context.Context, p domain.Principal, in CreateOrderInput) (*domain.Order, error) {
	if err := validateLines(in.Lines); err != nil {
		return nil, err
	}
	if err := in.ShippingAddress.Normalize().Validate(); err != nil {
		return nil, err
	}
	if !in.PaymentMethod.Valid() {
		return nil, domain.ErrInvalidPayment
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		return s.placeOrder(ctx, p, in)
	}

	// Fast path: a replay returns the order created by the first request.
	if id, ok, err := s.idempotency.Recall(ctx, p.UserID, key); err != nil {
		return nil, domain.NewUpstreamError("idempotency lookup failed", err)
	} else if ok {
		order, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, translate(err, "failed to load order")
		}
		return order, nil
	}

	locked, err := s.idempotency.TryLock(ctx, p.UserID, key)
	if err != nil {
		return nil, domain.NewUpstreamError("idempotency lock failed", err)
	}
	if !locked {
		return nil, domain.NewConflictError("a request with this idempotency key is in progress", nil)
	}

	order, err := s.placeOrder(ctx, p, in)
	if err != nil {
		if errRelease := s.idempotency.Release(context.WithoutCancel(ctx), p.UserID, key); errRelease != nil {
			s.logger(ctx).Warn("idempotency release failed", zap.Error(errRelease))
		}
		return nil, err
	}

	if errRemember := s.idempotency.Remember(ctx, p.UserID, key, order.ID); errRemember != nil {
		s.logger(ctx).Warn("idempotency remember failed", zap.String("order_id", order.ID), zap.Error(errRemember))
	}
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, p domain.Principal, in CreateOrderInput) (*domain.Order, error) {
	cart, err := s.priceLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order, err := domain.NewOrder(s.orderID(now), p.UserID, now, cart, in.ShippingAddress, in.PaymentMethod)
	if err != nil {
		return nil, err
	}

	event := s.newEvent(order.ID, "", order.Status, now)
	if err := s.commit(ctx, func(ctx context.Context) error {
		return s.orders.Create(ctx, order)
	}, event); err != nil {
		return nil, translate(err, "failed to save order")
	}

	ordersCreated.WithLabelValues(string(order.PaymentMethod)).Inc()
	s.logger(ctx).Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int64("total", order.Total),
		zap.Int("items", len(order.Items)))

	return order, nil
}

func validateLines(lines []domain.Line) error {
	if len(lines) == 0 {
		return domain.ErrNoItems
	}
	// Duplicate lines are merged later, so the bound applies to their sum.
	perArtwork := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return domain.NewValidationErrorf("quantity for artwork %d must be at least 1", l.ArtworkID)
		}
		if l.Quantity > domain.MaxQuantity-perArtwork[l.ArtworkID] {
			return domain.NewValidationErrorf("quantity for artwork %d must be at most %d", l.ArtworkID, domain.MaxQuantity)
		}
		perArtwork[l.ArtworkID] += l.Quantity
	}
	return nil
}

// priceLines builds a cart from catalog prices. Any unknown or unavailable
// artwork fails the whole request.
func (s *OrderService) priceLines(ctx context.Context, lines []domain.Line) (*domain.Cart, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ArtworkID]; ok {
			continue
		}
		seen[l.ArtworkID] = struct{}{}
		ids = append(ids, l.ArtworkID)
	}

	artworks, err := s.artworks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, translate(err, "failed to load artworks")
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := artworks[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return nil, domain.NewNotFoundError(fmt.Sprintf("artwork not found: %v", missing), repository.ErrArtworkNotFound)
	}

	var unavailable []int64
	for _, id := range ids {
		if !artworks[id].Available {
			unavailable = append(unavailable, id)
		}
	}
	if len(unavailable) > 0 {
		sort.Slice(unavailable, func(i, j int) bool { return unavailable[i] < unavailable[j] })
		return nil, &domain.Error{
			Kind:    domain.KindValidation,
			Message: fmt.Sprintf("artwork is not available: %v", unavailable),
			Err:     domain.ErrArtworkNotAvailable,
		}
	}

	items := make([]domain.CartItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, artworks[l.ArtworkID].CartItem(l.Quantity))
	}
	return domain.NewCartFromItems(items), nil
}

func (s *OrderService) newEvent(orderID string, from, to domain.OrderStatus, at time.Time) *domain.StatusEvent {
	return &domain.StatusEvent{
		ID:             s.eventID(),
		OrderID:        orderID,
		PreviousStatus: from,
		NewStatus:      to,
		Timestamp:      at.UTC(),
	}
}

// commit runs write and records event, which may be nil. With a transaction
// runner both land or neither does. Without one the event is appended after
// the write and a failed append is logged only.
func (s *OrderService) commit(ctx context.Context, write func(ctx context.Context) error, event *domain.StatusEvent) error {
	if s.tx == nil || s.events == nil {
		if err := write(ctx); err != nil {
			return err
		}
		if event != nil {
			s.appendEvent(ctx, event)
		}
		return nil
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := write(ctx); err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		if err := s.events.Append(ctx, event); err != nil {
			return fmt.Errorf("append status event: %w", err)
		}
		return nil
	})
}

// appendEvent records a status change in the outbox. Failures are logged only.
func (s *OrderService) appendEvent(ctx context.Context, event *domain.StatusEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(context.WithoutCancel(ctx), event); err != nil {
		s.logger(ctx).Error("status event append failed",
			zap.String("order_id", event.OrderID),
			zap.String("new_status", event.NewStatus.String()),
			zap.Error(err))
	}
}
