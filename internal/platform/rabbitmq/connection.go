// Package rabbitmq implements events.Publisher and queue consumers on top of
// a RabbitMQ broker.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection wraps a broker connection. Publishers and consumers each open
// their own channel on it.
type Connection struct {
	conn   *amqp.Connection
	logger *slog.Logger
}

// Dial connects to the broker, retrying up to maxRetries times with delay
// between attempts or until ctx is done.
func Dial(ctx context.Context, url string, maxRetries int, delay time.Duration, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rabbitmq")

	conn, err := connectWithRetry(ctx, url, maxRetries, delay, logger)
	if err != nil {
		return nil, err
	}
	return &Connection{conn: conn, logger: logger}, nil
}

func connectWithRetry(
	ctx context.Context,
	url string,
	maxRetries int,
	delay time.Duration,
	logger *slog.Logger,
) (*amqp.Connection, error) {
	var err error
	for i := 0; i < maxRetries; i++ {
		logger.Info("connecting to broker", "attempt", i+1, "max_attempts", maxRetries)

		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("connected to broker")
			return conn, nil
		}

		logger.Warn("broker connection failed", "error", err)
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// Channel opens a new channel.
func (c *Connection) Channel() (*amqp.Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// Healthy reports an error once the broker connection is gone.
func (c *Connection) Healthy(context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close closes the connection and every channel opened on it.
func (c *Connection) Close() error {
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

// declareQueue declares a durable queue so messages survive broker restarts.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}
