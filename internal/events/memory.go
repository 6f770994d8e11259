package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryPublisher records every published message and synchronously hands
// it to the handlers subscribed to its queue. It backs tests and the
// single-process dry-run mode.
type InMemoryPublisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	messages []*Message
	logger   *slog.Logger
}

// NewInMemoryPublisher creates a new instance of InMemoryPublisher.
func NewInMemoryPublisher(logger *slog.Logger) *InMemoryPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryPublisher{
		handlers: make(map[string][]Handler),
		logger:   logger.With("component", "in_memory_publisher"),
	}
}

var _ Publisher = (*InMemoryPublisher)(nil)

// Subscribe registers handler for messages published to queue.
func (p *InMemoryPublisher) Subscribe(queue string, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[queue] = append(p.handlers[queue], handler)
	p.logger.Debug("registered queue handler", "queue", queue, "handler_count", len(p.handlers[queue]))
}

// Publish records the message and delivers it to subscribers. Handler
// failures are logged, not returned: the message was published.
func (p *InMemoryPublisher) Publish(ctx context.Context, queue string, payload interface{}) error {
	msg, err := NewMessage(queue, payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.messages = append(p.messages, msg)
	handlers := make([]Handler, len(p.handlers[queue]))
	copy(handlers, p.handlers[queue])
	p.mu.Unlock()

	for i, handler := range handlers {
		if err := handler.HandleMessage(ctx, msg); err != nil {
			p.logger.Error("handler failed to process message",
				"error", err,
				"handler_index", i,
				"message_id", msg.ID,
				"queue", queue)
		}
	}
	return nil
}

// Messages returns the messages published to queue in publish order.
func (p *InMemoryPublisher) Messages(queue string) []*Message {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*Message
	for _, msg := range p.messages {
		if msg.Queue == queue {
			out = append(out, msg)
		}
	}
	return out
}

// Reset drops all recorded messages.
func (p *InMemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}
