package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer delivers messages from one queue to a handler, one at a time.
// A message is acknowledged only after the handler succeeded.
type Consumer struct {
	channel *amqp.Channel
	queue   string
	handler events.Handler
	logger  *slog.Logger
}

// NewConsumer opens a channel with prefetch 1 and declares the queue.
func NewConsumer(conn *Connection, queue string, handler events.Handler) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return newConsumer(ch, queue, handler, conn.logger), nil
}

func newConsumer(ch *amqp.Channel, queue string, handler events.Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		channel: ch,
		queue:   queue,
		handler: handler,
		logger:  logger.With("role", "consumer", "queue", queue),
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx,
		c.queue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", c.queue, err)
	}

	c.logger.Info("waiting for messages")
	for {
		select {
		case <-ctx.Done():
			_ = c.channel.Close()
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.handle(ctx, d)
		}
	}
}

// handle runs the handler and settles the delivery. Malformed messages are
// dropped since redelivery cannot fix them; any other failure is requeued.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	msg := toMessage(c.queue, d)
	log := c.logger.With("message_id", msg.ID, "delivery_tag", d.DeliveryTag)
	ctx = logger.WithLogger(ctx, log)

	err := c.handler.HandleMessage(ctx, msg)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", "error", ackErr)
		}
	case errors.Is(err, events.ErrMalformedMessage):
		log.Error("dropping malformed message", "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", "error", nackErr)
		}
	default:
		log.Warn("message processing failed, requeueing",
			"error", err,
			"redelivered", d.Redelivered)
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", "error", nackErr)
		}
	}
}

func toMessage(queue string, d amqp.Delivery) *events.Message {
	id, err := uuid.Parse(d.MessageId)
	if err != nil {
		id = uuid.New()
	}
	return &events.Message{
		ID:          id,
		Queue:       queue,
		Body:        d.Body,
		PublishedAt: d.Timestamp,
	}
}
