package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type ackRecorder struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func (a *ackRecorder) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.nacked)
}

type fakeChannel struct {
	msgs chan amqp.Delivery
	once sync.Once
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.msgs, nil
}

func (f *fakeChannel) Cancel(string, bool) error {
	f.once.Do(func() { close(f.msgs) })
	return nil
}

type confirmFunc func(ctx context.Context, msg usecase.PaymentStatusMsg) (bool, error)

func (f confirmFunc) ConfirmPayment(ctx context.Context, msg usecase.PaymentStatusMsg) (bool, error) {
	return f(ctx, msg)
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, RoutingKey: "payment.status.succeeded", Body: []byte(body)}
}

func TestRouter_AcksNacksAndDropsPoison(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	h := NewPaymentStatusHandler(confirmFunc(func(_ context.Context, msg usecase.PaymentStatusMsg) (bool, error) {
		mu.Lock()
		seen = append(seen, msg.SessionID)
		mu.Unlock()
		switch msg.SessionID {
		case "":
			return false, domain.ErrInvalidArgument
		case "flaky":
			return false, errors.New("store unavailable")
		}
		return true, nil
	}))

	rec := &ackRecorder{}
	ch := &fakeChannel{msgs: make(chan amqp.Delivery, 4)}
	ch.msgs <- delivery(rec, 1, `{"sessionId":"s1","status":"succeeded","cents":54498}`)
	ch.msgs <- delivery(rec, 2, `not json`)
	ch.msgs <- delivery(rec, 3, `{"status":"succeeded"}`)
	ch.msgs <- delivery(rec, 4, `{"sessionId":"flaky","status":"succeeded"}`)

	r := NewRouter(ch, WithTimeout(time.Second))
	r.Register(DefaultPaymentStatusQueue, h.Delivery())

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error { return r.Run(ctx) })

	assert.Eventually(t, func() bool {
		a, n := rec.counts()
		return a+n == 4
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, g.Wait())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []uint64{1}, rec.acked)
	assert.ElementsMatch(t, []uint64{2, 3, 4}, rec.nacked)
	for i, tag := range rec.nacked {
		assert.Equal(t, tag == 4, rec.requeue[i], "requeue for tag %d", tag)
	}
	assert.Equal(t, []string{"s1", "", "flaky"}, seen)
}

type capturePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (c *capturePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func TestRabbitProducer_Publish(t *testing.T) {
	pub := &capturePublisher{}
	p := NewRabbitProducer(pub)

	err := p.PublishCheckoutStarted(context.Background(), usecase.CheckoutStartedMsg{
		SessionID: "s1", IntentID: "pi_1", Cents: 54498, Currency: "usd",
		Lines: []usecase.CheckoutLine{{ProductID: 1, Quantity: 2, UnitPrice: "249.99"}},
	})
	require.NoError(t, err)
	assert.Equal(t, CartExchange, pub.exchange)
	assert.Equal(t, RoutingCheckoutStarted, pub.key)
	assert.Equal(t, "s1", pub.msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)

	var got usecase.CheckoutStartedMsg
	require.NoError(t, json.Unmarshal(pub.msg.Body, &got))
	assert.Equal(t, int64(54498), got.Cents)
	require.Len(t, got.Lines, 1)

	pub.err = errors.New("channel closed")
	err = p.PublishPaymentConfirmed(context.Background(), usecase.PaymentConfirmedMsg{SessionID: "s1"})
	require.Error(t, err)
	assert.Equal(t, RoutingPaymentConfirmed, pub.key)
}

func TestJSONHandler_PoisonBodies(t *testing.T) {
	var calls int
	h := JSONHandler[usecase.PaymentStatusMsg]{HandleFunc: func(context.Context, usecase.PaymentStatusMsg) error {
		calls++
		return nil
	}}
	ctx := context.Background()

	err := h.Handle(ctx, amqp.Delivery{ContentType: "text/plain", Body: []byte(`{"sessionId":"s1"}`)})
	assert.ErrorIs(t, err, ErrPoison)
	err = h.Handle(ctx, amqp.Delivery{ContentType: "application/json", Body: []byte(`{"sessionId":1}`)})
	assert.ErrorIs(t, err, ErrPoison)
	assert.Zero(t, calls)

	require.NoError(t, h.Handle(ctx, amqp.Delivery{ContentType: "application/json", Body: []byte(`{"sessionId":"s1"}`)}))
	assert.Equal(t, 1, calls)
}

func TestHandlerFunc(t *testing.T) {
	var got string
	var h Handler = HandlerFunc(func(_ context.Context, d amqp.Delivery) error {
		got = d.RoutingKey
		return nil
	})
	require.NoError(t, h.Handle(context.Background(), amqp.Delivery{RoutingKey: "rk"}))
	assert.Equal(t, "rk", got)
}
