package queue

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
)

// PaymentConfirmer is implemented by usecase.Checkout.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, msg usecase.PaymentStatusMsg) (bool, error)
}

// PaymentStatusHandler applies payment provider outcomes to carts. It is
// shared by the RabbitMQ Router and the Kafka consumer.
type PaymentStatusHandler struct {
	Confirmer PaymentConfirmer
}

func NewPaymentStatusHandler(c PaymentConfirmer) *PaymentStatusHandler {
	return &PaymentStatusHandler{Confirmer: c}
}

// HandleStatus is intended to be used with the JSON adapter (queue.JSONHandler[PaymentStatusMsg]).
func (h *PaymentStatusHandler) HandleStatus(ctx context.Context, msg usecase.PaymentStatusMsg) error {
	cleared, err := h.Confirmer.ConfirmPayment(ctx, msg)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return fmt.Errorf("%w: %w", ErrPoison, err)
		}
		return err
	}
	logging.FromCtx(ctx).Debug("payment status applied",
		"intent_id", msg.IntentID, "status", msg.Status, "cleared", cleared)
	return nil
}

// Delivery returns the raw AMQP handler for the payment status queue.
func (h *PaymentStatusHandler) Delivery() Handler {
	return JSONHandler[usecase.PaymentStatusMsg]{HandleFunc: h.HandleStatus}
}
