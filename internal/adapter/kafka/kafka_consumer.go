package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/IBM/sarama"
)

// HandlerFunc applies one payment status event.
type HandlerFunc func(ctx context.Context, ev usecase.PaymentStatusMsg) error

// Consumer feeds payment status events from Kafka to a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{Group: group, Topics: topics, Handle: h, Logger: logging.New("kafka-consumer")}
}

// Start consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *Consumer) Start(ctx context.Context) error {
	go c.logErrors(ctx)

	h := &cgHandler{handle: c.Handle, logger: c.Logger}
	for ctx.Err() == nil {
		if err := c.Group.Consume(ctx, c.Topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (c *Consumer) logErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-c.Group.Errors():
			if !ok {
				return
			}
			c.Logger.Error("consumer group error", "err", err)
		}
	}
}

func (c *Consumer) Close() error { return c.Group.Close() }

type cgHandler struct {
	handle HandlerFunc
	logger *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if note, done := h.process(sess.Context(), msg); done {
				sess.MarkMessage(msg, note)
			}
		}
	}
}

// process reports whether msg is finished with. Undecodable and invalid
// events are finished too; retrying cannot fix them.
func (h *cgHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) (note string, done bool) {
	log := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	var ev usecase.PaymentStatusMsg
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		log.Warn("undecodable payment status", "err", err)
		return "decode-error", true
	}
	if ev.SessionID == "" {
		ev.SessionID = string(msg.Key)
	}

	err := h.handle(ctx, ev)
	switch {
	case err == nil:
		return "", true
	case errors.Is(err, domain.ErrInvalidArgument):
		log.Warn("dropping invalid payment status", "err", err)
		return "invalid", true
	default:
		// left unmarked; redelivered after the next rebalance
		log.Error("payment status not applied", "session_id", ev.SessionID, "err", err)
		return "", false
	}
}
