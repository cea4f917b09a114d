// Package poller consumes order status changes published by the backend and applies them to
// the stored receipts.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/receipts"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrInvalidEvent = errors.New("invalid order status event")

// StatusEvent is one status change of an order, or of a single line when TrackingNumber is set.
type StatusEvent struct {
	OrderID        string             `json:"orderId"`
	TrackingNumber string             `json:"trackingNumber"`
	Status         domain.OrderStatus `json:"status"`
}

type StatusStore interface {
	UpdateLineStatus(ctx context.Context, orderID, tracking string, status domain.OrderStatus) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Poller struct {
	store  StatusStore
	reader messageReader
}

func NewPoller(store StatusStore, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{store: store, reader: reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.processMessage(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		zap.L().Warn("error closing kafka reader", zap.Error(err))
	}
}

func (p *Poller) processMessage(ctx context.Context) {
	log := logger.FromContext(ctx)
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("error reading status message", zap.Error(err))
		}
		return
	}

	err = p.apply(ctx, m.Value)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, receipts.ErrInvalidStatus):
		log.Warn("skipping status message", zap.Int64("offset", m.Offset), zap.Error(err))
	case errors.Is(err, receipts.ErrReceiptNotFound):
		// orders placed elsewhere have no receipt here
		log.Debug("no receipt for status message", zap.ByteString("key", m.Key))
	default:
		log.Error("failed to apply status message", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

func (p *Poller) apply(ctx context.Context, value []byte) error {
	var ev StatusEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	ev.OrderID = strings.TrimSpace(ev.OrderID)
	ev.TrackingNumber = strings.TrimSpace(ev.TrackingNumber)
	if ev.OrderID == "" {
		return fmt.Errorf("%w: missing orderId", ErrInvalidEvent)
	}
	if !ev.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, ev.Status)
	}

	if err := p.store.UpdateLineStatus(ctx, ev.OrderID, ev.TrackingNumber, ev.Status); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("order status updated",
		zap.String("order_id", ev.OrderID),
		zap.String("tracking_number", ev.TrackingNumber),
		zap.String("status", string(ev.Status)))
	return nil
}
