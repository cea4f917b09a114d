package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	r "github.com/fjod/go_cart/storefront/internal/receipts"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

type update struct {
	OrderID  string
	Tracking string
	Status   domain.OrderStatus
}

type fakeStore struct {
	mu      sync.Mutex
	err     error
	updates []update
}

func (s *fakeStore) UpdateLineStatus(_ context.Context, orderID, tracking string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, update{orderID, tracking, status})
	return nil
}

func (s *fakeStore) snapshot() []update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]update(nil), s.updates...)
}

func (s *fakeStore) count() int {
	return len(s.snapshot())
}

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	msgs   chan kafkaGo.Message
	closed bool
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{msgs: make(chan kafkaGo.Message, len(values))}
	for i, v := range values {
		r.msgs <- kafkaGo.Message{Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafkaGo.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestApply(t *testing.T) {
	store := &fakeStore{}
	p := &Poller{store: store}
	ctx := context.Background()

	err := p.apply(ctx, []byte(`{"orderId":" o-1 ","trackingNumber":"TRK-A","status":"processing"}`))
	assert.NilError(t, err)
	assert.DeepEqual(t, []update{{"o-1", "TRK-A", domain.OrderStatusProcessing}}, store.updates)

	err = p.apply(ctx, []byte(`{"orderId":"o-1","status":"completed"}`))
	assert.NilError(t, err)
	assert.Equal(t, 2, len(store.updates))
	assert.Equal(t, "", store.updates[1].Tracking)
}

func TestApply_InvalidPayloads(t *testing.T) {
	store := &fakeStore{}
	p := &Poller{store: store}

	for name, payload := range map[string]string{
		"not json":       `{"orderId":`,
		"missing order":  `{"trackingNumber":"TRK-A","status":"processing"}`,
		"unknown status": `{"orderId":"o-1","status":"lost"}`,
		"empty status":   `{"orderId":"o-1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			err := p.apply(context.Background(), []byte(payload))
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
	assert.Equal(t, 0, len(store.updates))
}

func TestApply_StoreError(t *testing.T) {
	p := &Poller{store: &fakeStore{err: r.ErrReceiptNotFound}}

	err := p.apply(context.Background(), []byte(`{"orderId":"o-9","status":"cancelled"}`))
	assert.ErrorIs(t, err, r.ErrReceiptNotFound)
}

func TestRun_SkipsBadMessages(t *testing.T) {
	store := &fakeStore{}
	reader := newFakeReader(
		`garbage`,
		`{"orderId":"o-1","status":"out-for-delivery"}`,
		`{"orderId":"o-2","status":"nope"}`,
		`{"orderId":"o-3","trackingNumber":"TRK-3","status":"at-local-facility"}`,
	)
	p := &Poller{store: store, reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	p.Close()

	got := store.snapshot()
	assert.Equal(t, domain.OrderStatusOutForDelivery, got[0].Status)
	assert.Equal(t, "TRK-3", got[1].Tracking)
	assert.Assert(t, reader.closed)
}

func TestApply_UpdatesStoredReceipt(t *testing.T) {
	ctx := context.Background()
	repo, err := r.Open(ctx, filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.RunMigrations())

	require.NoError(t, repo.Record(ctx, checkout.Placement{
		OrderID: "o-1",
		Owner:   domain.Owner{SessionID: "s-1"},
		Payload: &domain.OrderPayload{
			OrderInfo: []domain.OrderLine{
				{ProductInfo: "P1", TrackingNumber: "TRK-1", Quantity: 1, Status: domain.OrderStatusPending,
					TotalAmount: domain.LineTotals{Total: decimal.NewFromInt(10)}},
			},
			PaymentInfo: domain.PaymentInfoBkash,
			TotalAmount: decimal.NewFromInt(70),
		},
		PlacedAt: time.Now(),
	}))

	p := &Poller{store: repo}
	assert.NilError(t, p.apply(ctx, []byte(`{"orderId":"o-1","trackingNumber":"TRK-1","status":"completed"}`)))

	rc, err := repo.FindByTracking(ctx, "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, rc.Lines[0].Status)

	err = p.apply(ctx, []byte(`{"orderId":"o-404","status":"completed"}`))
	assert.ErrorIs(t, err, r.ErrReceiptNotFound)
}

func setupKafka(t *testing.T) string {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(kafkaContainer); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func TestPoller_ConsumesFromKafka(t *testing.T) {
	brokers := setupKafka(t)
	const topic = "storefront.order-status"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	payload, err := json.Marshal(StatusEvent{OrderID: "o-1", TrackingNumber: "TRK-1", Status: domain.OrderStatusCancelled})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		// the first write can race topic auto-creation
		return w.WriteMessages(ctx, kafkaGo.Message{Key: []byte("o-1"), Value: payload}) == nil
	}, 15*time.Second, 500*time.Millisecond)
	w.Close()

	store := &fakeStore{}
	p := NewPoller(store, topic, fmt.Sprintf("storefront-test-%d", time.Now().UnixNano()), brokers)
	defer p.Close()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return store.count() == 1 }, 15*time.Second, 500*time.Millisecond)
	assert.Equal(t, domain.OrderStatusCancelled, store.snapshot()[0].Status)
}
