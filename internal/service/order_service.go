package service

import (
	"context"
	"time"

	"github.com/fjod/artshop/internal/cache"
	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/payment"
	"github.com/fjod/artshop/internal/repository"
	"github.com/fjod/artshop/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	updateAttempts          = 3
	DefaultRecentSalesLimit = 5
)

type OrderDeps struct {
	Orders      repository.OrderRepository
	Artworks    repository.ArtworkRepository
	Users       repository.UserRepository
	Events      repository.EventRepository
	Cache       cache.OrderCache
	Idempotency cache.IdempotencyStore
	Payments    payment.InfoProvider
	Policy      domain.TransitionPolicy
	Logger      *zap.Logger
	// Tx makes an order write and its status event atomic. Without it the
	// event is appended after the write and a failure is only logged.
	Tx repository.TxRunner

	// Optional; default to the wall clock and the ORD-/TRK- generators.
	Now               func() time.Time
	NewOrderID        func(time.Time) string
	NewTrackingNumber func(time.Time) string
	NewEventID        func() string
}

type OrderService struct {
	orders      repository.OrderRepository
	artworks    repository.ArtworkRepository
	users       repository.UserRepository
	events      repository.EventRepository
	cache       cache.OrderCache
	idempotency cache.IdempotencyStore
	payments    payment.InfoProvider
	policy      domain.TransitionPolicy
	log         *zap.Logger
	tx          repository.TxRunner

	now         func() time.Time
	orderID     func(time.Time) string
	trackingNum func(time.Time) string
	eventID     func() string

	sfg singleflight.Group // Prevents cache stampede
}

func NewOrderService(d OrderDeps) *OrderService {
	s := &OrderService{
		orders:      d.Orders,
		artworks:    d.Artworks,
		users:       d.Users,
		events:      d.Events,
		cache:       d.Cache,
		idempotency: d.Idempotency,
		payments:    d.Payments,
		policy:      d.Policy,
		log:         d.Logger,
		tx:          d.Tx,
		now:         d.Now,
		orderID:     d.NewOrderID,
		trackingNum: d.NewTrackingNumber,
		eventID:     d.NewEventID,
	}
	if s.policy == nil {
		s.policy = domain.PermissivePolicy{}
	}
	if s.payments == nil {
		s.payments = payment.NoopProvider{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.orderID == nil {
		s.orderID = NewOrderID
	}
	if s.trackingNum == nil {
		s.trackingNum = NewTrackingNumber
	}
	if s.eventID == nil {
		s.eventID = newEventID
	}
	return s
}

func (s *OrderService) logger(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.log)
}
