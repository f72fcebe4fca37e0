package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/artshop/internal/cache"
	"github.com/fjod/artshop/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader the invalidator needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

// CacheInvalidator consumes order status events and evicts the order from the
// order cache. It backs up the inline eviction done on every write.
type CacheInvalidator struct {
	reader MessageReader
	cache  cache.OrderCache
	log    *zap.Logger
}

func NewCacheInvalidator(reader MessageReader, orders cache.OrderCache, log *zap.Logger) *CacheInvalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheInvalidator{
		reader: reader,
		cache:  orders,
		log:    log.With(zap.String("component", "cache_invalidator")),
	}
}

func (c *CacheInvalidator) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.readAndInvalidate(ctx)
	}
}

func (c *CacheInvalidator) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing reader", zap.Error(err))
	}
}

func (c *CacheInvalidator) readAndInvalidate(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Warn("error reading message", zap.Error(err))
		}
		return
	}

	orderID, err := orderIDOf(m)
	if err != nil {
		c.log.Warn("skipping message", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}

	if errDelete := c.cache.Delete(ctx, orderID); errDelete != nil {
		c.log.Warn("failed to delete cache", zap.String("order_id", orderID), zap.Error(errDelete))
	}
}

func orderIDOf(m kafka.Message) (string, error) {
	var event domain.StatusEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return "", fmt.Errorf("error parsing message: %w", err)
	}
	if event.OrderID == "" {
		if len(m.Key) == 0 {
			return "", errors.New("missing order id")
		}
		return string(m.Key), nil
	}
	return event.OrderID, nil
}
