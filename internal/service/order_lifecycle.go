package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
	"go.uber.org/zap"
)

// UpdateStatus moves an order to status. With expectedRevision set, the
// update only applies to that revision; otherwise a lost race is retried.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, expectedRevision *int64) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	var previous domain.OrderStatus
	order, err := s.mutate(ctx, id, expectedRevision, func(o *domain.Order, now time.Time) (*domain.StatusEvent, error) {
		previous = o.Status
		if err := o.ApplyStatus(status, s.policy, func() string { return s.trackingNum(now) }, now); err != nil {
			return nil, err
		}
		if previous == o.Status {
			return nil, nil
		}
		return s.newEvent(o.ID, previous, o.Status, now), nil
	})
	if err != nil {
		return nil, err
	}

	if previous != order.Status {
		statusTransitions.WithLabelValues(previous.String(), order.Status.String()).Inc()
	}
	s.logger(ctx).Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("from", previous.String()),
		zap.String("to", order.Status.String()),
		zap.String("tracking_number", order.TrackingNumber),
		zap.Int64("revision", order.Revision))
	return order, nil
}

// AttachPaymentKey records the provider key of an authorized card payment on
// an order the caller owns.
func (s *OrderService) AttachPaymentKey(ctx context.Context, p domain.Principal, id, key string) (*domain.Order, error) {
	order, err := s.mutate(ctx, id, nil, func(o *domain.Order, now time.Time) (*domain.StatusEvent, error) {
		if !p.CanAccess(o) {
			return nil, domain.NewAuthorizationError("not authorized to modify this order")
		}
		return nil, o.AttachPaymentKey(key, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info("payment key attached", zap.String("order_id", order.ID))
	return order, nil
}

// mutate runs a read-modify-write of one order guarded by its revision. The
// event returned by apply is committed together with the order.
func (s *OrderService) mutate(ctx context.Context, id string, expectedRevision *int64, apply func(*domain.Order, time.Time) (*domain.StatusEvent, error)) (*domain.Order, error) {
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		order, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, translate(err, "failed to load order")
		}
		if expectedRevision != nil && order.Revision != *expectedRevision {
			return nil, domain.NewConflictError("order revision does not match", repository.ErrRevisionConflict)
		}

		event, err := apply(order, s.now())
		if err != nil {
			return nil, err
		}

		read := order.Revision
		err = s.commit(ctx, func(ctx context.Context) error {
			// A retried transaction must compare against the revision that was read.
			order.Revision = read
			return s.orders.Update(ctx, order)
		}, event)
		if err == nil {
			s.refreshCache(order)
			return order, nil
		}
		if !errors.Is(err, repository.ErrRevisionConflict) || expectedRevision != nil {
			return nil, translate(err, "failed to save order")
		}
		s.logger(ctx).Debug("order update lost race, retrying",
			zap.String("order_id", id),
			zap.Int("attempt", attempt))
	}
	return nil, domain.NewConflictError("order is being modified concurrently, try again", repository.ErrRevisionConflict)
}

// refreshCache writes the committed order to the cache. The cache keeps the
// highest revision it has seen, so a read that started before this update
// cannot put the old order back. If the write fails the entry is dropped.
func (s *OrderService) refreshCache(order *domain.Order) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errSet := s.cache.Set(ctx, order.Clone())
	if errSet == nil {
		return
	}
	s.log.Warn("order cache refresh failed", zap.String("order_id", order.ID), zap.Error(errSet))
	if errDelete := s.cache.Delete(ctx, order.ID); errDelete != nil {
		s.log.Warn("order cache invalidate failed", zap.String("order_id", order.ID), zap.Error(errDelete))
	}
}
