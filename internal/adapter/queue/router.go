package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/7amooo12/SamaStylestore/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the Router consumes through.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// Router fans deliveries from several queues on one channel out to their
// handlers and settles each delivery from the handler's result.
type Router struct {
	ch           Channel
	prefetch     int
	callTimeout  time.Duration
	requeueOnErr bool
	log          *slog.Logger
	routes       []route
	inflight     sync.WaitGroup
}

type route struct {
	queue   string
	tag     string
	handler Handler
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

// NewRouter defaults to prefetch 50, a 10s handler timeout and requeue on
// transient errors.
func NewRouter(ch Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
		log:          logging.New("rmq-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a handler to a queue. Register before Start.
func (r *Router) Register(queueName string, h Handler) {
	r.routes = append(r.routes, route{queue: queueName, tag: "cart-api." + queueName, handler: h})
}

// Start subscribes every route and returns; deliveries are handled in one
// goroutine per queue. Prefetch applies to the whole channel.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	for _, rt := range r.routes {
		// manual ack, shared, no-wait off
		msgs, err := r.ch.Consume(rt.queue, rt.tag, false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", rt.queue, err)
		}
		r.inflight.Add(1)
		go r.consume(ctx, rt, msgs)
	}
	return nil
}

// Run is Start plus shutdown: when ctx ends the consumers are cancelled and
// Run waits for deliveries already in hand.
func (r *Router) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	for _, rt := range r.routes {
		if err := r.ch.Cancel(rt.tag, false); err != nil {
			r.log.Warn("cancel consumer", "tag", rt.tag, "err", err)
		}
	}
	r.inflight.Wait()
	return nil
}

func (r *Router) consume(ctx context.Context, rt route, msgs <-chan amqp.Delivery) {
	defer r.inflight.Done()
	for d := range msgs {
		r.settle(rt, d, r.handle(ctx, rt, d))
	}
	r.log.Info("consumer stopped", "queue", rt.queue, "tag", rt.tag)
}

func (r *Router) handle(ctx context.Context, rt route, d amqp.Delivery) error {
	// shutdown does not cut a delivery short
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
	defer cancel()
	return rt.handler.Handle(hctx, d)
}

func (r *Router) settle(rt route, d amqp.Delivery, err error) {
	if err == nil {
		_ = d.Ack(false)
		return
	}
	requeue := r.requeueOnErr && !errors.Is(err, ErrPoison)
	r.log.Error("handler error",
		"queue", rt.queue, "rk", d.RoutingKey, "tag", d.DeliveryTag, "requeue", requeue, "err", err)
	_ = d.Nack(false, requeue)
}
