package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher implements events.Publisher. Queues are declared on first use.
type Publisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	declared map[string]bool
	logger   *slog.Logger
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher opens a dedicated channel for publishing.
func NewPublisher(conn *Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		channel:  ch,
		declared: make(map[string]bool),
		logger:   conn.logger.With("role", "publisher"),
	}, nil
}

// Publish sends payload as a persistent JSON message to queue.
func (p *Publisher) Publish(ctx context.Context, queue string, payload interface{}) error {
	log := logger.FromContextOrDefault(ctx, p.logger)

	msg, err := events.NewMessage(queue, payload)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[queue] {
		if err := declareQueue(p.channel, queue); err != nil {
			return err
		}
		p.declared[queue] = true
	}

	err = p.channel.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    msg.ID.String(),
			Timestamp:    msg.PublishedAt,
			Body:         msg.Body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	log.Debug("message published",
		"queue", queue,
		"message_id", msg.ID,
		"size", len(msg.Body))
	return nil
}

// Close closes the publishing channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Close()
}
