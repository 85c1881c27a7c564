package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPoison marks a delivery that can never succeed. The Router drops it
// instead of requeueing.
var ErrPoison = errors.New("poison message")

// Handler processes one delivery and should be idempotent. nil acks it, an
// error wrapping ErrPoison drops it, any other error nacks it with the
// Router's requeue setting.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

// HandlerFunc lets a plain function serve as a Handler.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, d amqp.Delivery) error { return f(ctx, d) }

// JSONHandler decodes the body into T before calling HandleFunc. Bodies that
// are not JSON, or not T, are poison.
type JSONHandler[T any] struct {
	HandleFunc func(ctx context.Context, msg T) error
}

func (h JSONHandler[T]) Handle(ctx context.Context, d amqp.Delivery) error {
	if ct := d.ContentType; ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: %s has content type %q", ErrPoison, d.RoutingKey, ct)
	}
	var msg T
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrPoison, d.RoutingKey, err)
	}
	return h.HandleFunc(ctx, msg)
}
