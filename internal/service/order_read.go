package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/artshop/internal/cache"
	"github.com/fjod/artshop/internal/domain"
	"go.uber.org/zap"
)

// GetOrder returns the order with its payment panel. Only the owner and
// admins may read an order. A failed payment lookup omits the panel.
func (s *OrderService) GetOrder(ctx context.Context, p domain.Principal, id string) (*domain.OrderView, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(order) {
		return nil, domain.NewAuthorizationError("not authorized to view this order")
	}

	view := &domain.OrderView{Order: order}
	if order.PaymentMethod == domain.PaymentMethodCard && order.PaymentKey != "" {
		info, err := s.payments.GetPaymentInfo(ctx, order.PaymentKey)
		if err != nil {
			paymentLookupFailures.Inc()
			s.logger(ctx).Warn("payment info lookup failed",
				zap.String("order_id", order.ID),
				zap.Error(err))
		} else {
			view.Payment = info
		}
	}
	return view, nil
}

// loadOrder reads through the order cache. Concurrent misses for one id
// share a single repository read.
func (s *OrderService) loadOrder(ctx context.Context, id string) (*domain.Order, error) {
	v, err, _ := s.sfg.Do(id, func() (interface{}, error) {
		if s.cache != nil {
			order, err := s.cache.Get(ctx, id)
			if err == nil {
				return order, nil // order is in cache
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				s.logger(ctx).Warn("order cache get failed", zap.String("order_id", id), zap.Error(err))
			}
		}

		order, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, translate(err, "failed to load order")
		}

		// Set inside the flight; the cache refuses it if an update already
		// stored a newer revision.
		if s.cache != nil {
			setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			if errSet := s.cache.Set(setCtx, order.Clone()); errSet != nil {
				s.logger(ctx).Warn("order cache set failed", zap.String("order_id", order.ID), zap.Error(errSet))
			}
			cancel()
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers of one flight share the value.
	return v.(*domain.Order).Clone(), nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, p domain.Principal) ([]*domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, translate(err, "failed to list orders")
	}
	return orders, nil
}

// ListOrders returns every order, newest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orders.List(ctx, 0)
	if err != nil {
		return nil, translate(err, "failed to list orders")
	}
	return orders, nil
}

// RecentSales flattens the newest orders into at most limit line items.
func (s *OrderService) RecentSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = DefaultRecentSalesLimit
	}
	orders, err := s.orders.List(ctx, int64(limit))
	if err != nil {
		return nil, translate(err, "failed to list orders")
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.UserID)
	}
	names, err := s.users.NamesByIDs(ctx, ids)
	if err != nil {
		s.logger(ctx).Warn("buyer name lookup failed", zap.Error(err))
		names = map[string]string{}
	}

	return domain.FlattenSales(orders, limit, func(o *domain.Order) string {
		if name, ok := names[o.UserID]; ok && name != "" {
			return name
		}
		return o.ShippingAddress.Name
	}), nil
}

func (s *OrderService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	artworks, err := s.artworks.Count(ctx)
	if err != nil {
		return nil, translate(err, "failed to count artworks")
	}
	lineItems, revenue, err := s.orders.Totals(ctx)
	if err != nil {
		return nil, translate(err, "failed to total orders")
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, translate(err, "failed to count users")
	}
	return &domain.DashboardStats{
		TotalArtworks: artworks,
		TotalSales:    lineItems,
		TotalRevenue:  revenue,
		TotalVisitors: users,
	}, nil
}
