package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/7amooo12/SamaStylestore/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	CartExchange              = "cart.events"
	RoutingCheckoutStarted    = "cart.checkout.started"
	RoutingPaymentConfirmed   = "cart.payment.confirmed"
	PaymentExchange           = "payment.events"
	PaymentStatusRoutingKey   = "payment.status.#"
	DefaultPaymentStatusQueue = "payment.status.q"
)

// Publisher is the subset of *amqp.Channel the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitProducer implements usecase.EventPublisher
type RabbitProducer struct {
	ch Publisher
}

// DeclareTopology sets up both exchanges and the payment status queue once at
// startup. statusQueue defaults to DefaultPaymentStatusQueue.
func DeclareTopology(ch *amqp.Channel, statusQueue string) error {
	if statusQueue == "" {
		statusQueue = DefaultPaymentStatusQueue
	}
	for _, ex := range []string{CartExchange, PaymentExchange} {
		if err := ch.ExchangeDeclare(
			ex,
			"topic",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	q, err := ch.QueueDeclare(
		statusQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, PaymentStatusRoutingKey, PaymentExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

func NewRabbitProducer(ch Publisher) *RabbitProducer {
	return &RabbitProducer{ch: ch}
}

func (p *RabbitProducer) PublishCheckoutStarted(ctx context.Context, msg usecase.CheckoutStartedMsg) error {
	return p.publish(ctx, RoutingCheckoutStarted, msg.SessionID, msg)
}

func (p *RabbitProducer) PublishPaymentConfirmed(ctx context.Context, msg usecase.PaymentConfirmedMsg) error {
	return p.publish(ctx, RoutingPaymentConfirmed, msg.SessionID, msg)
}

func (p *RabbitProducer) publish(ctx context.Context, routingKey, correlationID string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent, // survive broker restarts
		CorrelationId: correlationID,
		Type:          routingKey,
		Body:          body,
	}

	if err := p.ch.PublishWithContext(
		ctx,
		CartExchange, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

var _ usecase.EventPublisher = (*RabbitProducer)(nil)
