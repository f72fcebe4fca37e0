package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/artshop/internal/domain"
	"github.com/fjod/artshop/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"

	defaultBatchSize = 100
)

var eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "outbox_events_published_total",
	Help: "Status events handed to the broker, by result.",
}, []string{"result"})

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic. Messages with one key land on
// one partition so events of an order stay in sequence.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

// OutboxPoller relays unpublished order status events to Kafka.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int64
	repo      repository.EventRepository
	writer    MessageWriter
	log       *zap.Logger
}

func NewOutboxPoller(repo repository.EventRepository, writer MessageWriter, eventTick time.Duration, log *zap.Logger) *OutboxPoller {
	if eventTick <= 0 {
		eventTick = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxPoller{
		eventTick: eventTick,
		batchSize: defaultBatchSize,
		repo:      repo,
		writer:    writer,
		log:       log.With(zap.String("component", "outbox_poller")),
	}
}

// Run polls until ctx is cancelled, then closes the writer.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnpublished(ctx, p.batchSize)
	if err != nil {
		p.log.Error("failed to fetch events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if errPublish := p.publishToKafka(ctx, event); errPublish != nil {
			eventsPublished.WithLabelValues("error").Inc()
			p.log.Warn("failed to publish event",
				zap.String("event_id", event.ID),
				zap.String("order_id", event.OrderID),
				zap.Error(errPublish))
			// later events of the same order must not overtake this one
			break
		}
		eventsPublished.WithLabelValues("ok").Inc()

		if errMark := p.repo.MarkPublished(ctx, event.ID); errMark != nil {
			p.log.Warn("failed to mark event as published",
				zap.String("event_id", event.ID),
				zap.Error(errMark))
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *domain.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID), // order id for ordering
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType(event))},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func eventType(event *domain.StatusEvent) string {
	if event.PreviousStatus == "" {
		return EventTypeOrderCreated
	}
	return EventTypeOrderStatusChanged
}
