package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/receipts"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

// EventStore is the outbox side of the receipts repository.
type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*receipts.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      EventStore
	writer    messageWriter
}

func NewOutboxPoller(repo EventStore, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{timeout: time.Second * 5, eventTick: time.Second, repo: repo, writer: w}
}

// Run publishes pending outbox events every tick until ctx is done.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	log := logger.FromContext(ctx)
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		log.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			log.Warn("failed to publish outbox event", zap.Int64("event_id", event.ID), zap.Error(err))
			// keep order per aggregate: later events wait for the next tick
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Error("failed to mark outbox event as processed", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		log.Debug("outbox event published",
			zap.Int64("event_id", event.ID), zap.String("order_id", event.AggregateID))
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *receipts.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id for ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
